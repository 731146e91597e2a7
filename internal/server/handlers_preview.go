package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pageforge-ai/pageforge/internal/storage"
)

var (
	cssLinkPattern   = regexp.MustCompile(`(?i)<link[^>]*rel=["']stylesheet["'][^>]*>`)
	cssHrefPattern   = regexp.MustCompile(`(?i)<link[^>]*href=["'][^"']*\.css["'][^>]*>`)
	scriptSrcPattern = regexp.MustCompile(`(?is)<script[^>]*src=["'][^"']*["'][^>]*>\s*</script>`)
)

// previewProject handles GET /projects/{projectID}/preview: the three
// source files combined into one self-contained HTML document.
func (s *Server) previewProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	proj, err := s.projects.Get(r.Context(), projectID)
	if err != nil {
		if err == storage.ErrNotFound {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	files, err := s.projects.GetFiles(r.Context(), projectID)
	if err != nil && err != storage.ErrNotFound {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m := map[string]string{}
	if files != nil {
		m = files.Map()
	}

	preview := composePreview(proj.Name, m["index.html"], m["style.css"], m["script.js"])

	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write([]byte(preview))
}

// composePreview inlines the CSS and JS into the HTML document. External
// stylesheet and script references are stripped first so the inlined
// copies are the only ones loaded.
func composePreview(title, html, css, js string) string {
	html = cssLinkPattern.ReplaceAllString(html, "")
	html = cssHrefPattern.ReplaceAllString(html, "")
	html = scriptSrcPattern.ReplaceAllString(html, "")

	if !strings.Contains(html, "<!DOCTYPE html>") && !strings.Contains(html, "<html") {
		return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
%s
    </style>
</head>
<body>
%s
    <script>
%s
    </script>
</body>
</html>`, title, css, html, js)
	}

	styleTag := fmt.Sprintf("<style>\n%s\n</style>", css)
	switch {
	case strings.Contains(html, "</head>"):
		html = strings.Replace(html, "</head>", styleTag+"\n</head>", 1)
	case strings.Contains(html, "<head>"):
		html = strings.Replace(html, "<head>", "<head>\n"+styleTag, 1)
	default:
		html = styleTag + "\n" + html
	}

	scriptTag := fmt.Sprintf("<script>\n%s\n</script>", js)
	if strings.Contains(html, "</body>") {
		html = strings.Replace(html, "</body>", scriptTag+"\n</body>", 1)
	} else {
		html = html + "\n" + scriptTag
	}

	return html
}
