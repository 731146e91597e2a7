// Package generator produces the build event stream for a prompt: plan,
// description, project creation and per-file code, in the order clients
// consume them.
package generator

import (
	"context"
	"fmt"
	"strings"
)

// IntentCreate means the prompt asks for a web page. Anything else is
// answered conversationally without creating a project.
const IntentCreate = "create_webpage"

// Intent is the classification of a prompt.
type Intent struct {
	Kind     string
	Response string
}

// PlanTask is one step of the generation plan. Tasks with a File produce
// that source file; tasks without one are plan-only milestones.
type PlanTask struct {
	ID   int
	Task string
	File string
}

// Planner decides what to build for a prompt. The seam exists so the
// generation pipeline can be driven by a model-backed planner or the
// deterministic template one.
type Planner interface {
	// DetectIntent classifies the prompt.
	DetectIntent(ctx context.Context, prompt string) (*Intent, error)

	// Describe produces a one-line project description.
	Describe(ctx context.Context, prompt string) (string, error)

	// Plan produces the ordered task list.
	Plan(ctx context.Context, prompt string) ([]PlanTask, error)

	// FileLines produces the source of one file as streamable lines.
	FileLines(ctx context.Context, prompt, filename string) ([]string, error)
}

// buildWords are prompt markers for page-building requests.
var buildWords = []string{
	"create", "build", "make", "generate", "design",
	"page", "website", "site", "landing", "portfolio", "app",
}

// TemplatePlanner is a deterministic Planner that fills fixed page
// templates from the prompt. It keeps the pipeline fully functional
// without a model behind it.
type TemplatePlanner struct{}

// NewTemplatePlanner creates a template-backed planner.
func NewTemplatePlanner() *TemplatePlanner {
	return &TemplatePlanner{}
}

func (p *TemplatePlanner) DetectIntent(ctx context.Context, prompt string) (*Intent, error) {
	lower := strings.ToLower(prompt)
	for _, word := range buildWords {
		if strings.Contains(lower, word) {
			return &Intent{Kind: IntentCreate}, nil
		}
	}
	return &Intent{
		Kind:     "conversation",
		Response: "I can build web pages for you. Describe the page you want, for example: \"create a landing page for a coffee shop\".",
	}, nil
}

func (p *TemplatePlanner) Describe(ctx context.Context, prompt string) (string, error) {
	return fmt.Sprintf("A web page for: %s", strings.TrimSpace(prompt)), nil
}

func (p *TemplatePlanner) Plan(ctx context.Context, prompt string) ([]PlanTask, error) {
	return []PlanTask{
		{ID: 1, Task: "Set up project structure"},
		{ID: 2, Task: "Create HTML structure", File: "index.html"},
		{ID: 3, Task: "Design CSS styling", File: "style.css"},
		{ID: 4, Task: "Add JavaScript functionality", File: "script.js"},
	}, nil
}

func (p *TemplatePlanner) FileLines(ctx context.Context, prompt, filename string) ([]string, error) {
	title := pageTitle(prompt)
	switch filename {
	case "index.html":
		return []string{
			"<!DOCTYPE html>",
			"<html lang=\"en\">",
			"<head>",
			"    <meta charset=\"UTF-8\">",
			"    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">",
			fmt.Sprintf("    <title>%s</title>", title),
			"    <link rel=\"stylesheet\" href=\"style.css\">",
			"</head>",
			"<body>",
			"    <header class=\"hero\">",
			fmt.Sprintf("        <h1>%s</h1>", title),
			fmt.Sprintf("        <p class=\"tagline\">%s</p>", strings.TrimSpace(prompt)),
			"    </header>",
			"    <main id=\"content\"></main>",
			"    <footer>",
			fmt.Sprintf("        <p>&copy; %s</p>", title),
			"    </footer>",
			"    <script src=\"script.js\"></script>",
			"</body>",
			"</html>",
		}, nil
	case "style.css":
		return []string{
			":root {",
			"    --accent: #4f46e5;",
			"    --bg: #fafafa;",
			"}",
			"",
			"body {",
			"    margin: 0;",
			"    font-family: system-ui, sans-serif;",
			"    background: var(--bg);",
			"}",
			"",
			".hero {",
			"    padding: 4rem 2rem;",
			"    text-align: center;",
			"    color: #fff;",
			"    background: var(--accent);",
			"}",
			"",
			".tagline {",
			"    opacity: 0.85;",
			"}",
			"",
			"footer {",
			"    padding: 1rem 2rem;",
			"    text-align: center;",
			"    font-size: 0.875rem;",
			"    color: #666;",
			"}",
		}, nil
	case "script.js":
		return []string{
			"document.addEventListener('DOMContentLoaded', () => {",
			"    const content = document.getElementById('content');",
			"    if (content) {",
			fmt.Sprintf("        content.textContent = 'Welcome to %s';", strings.ReplaceAll(title, "'", "\\'")),
			"    }",
			"});",
		}, nil
	default:
		return nil, fmt.Errorf("no template for file %q", filename)
	}
}

// pageTitle derives a short title from the prompt.
func pageTitle(prompt string) string {
	words := strings.Fields(strings.TrimSpace(prompt))
	if len(words) == 0 {
		return "New Page"
	}
	if len(words) > 6 {
		words = words[:6]
	}
	title := strings.Join(words, " ")
	return strings.ToUpper(title[:1]) + title[1:]
}
