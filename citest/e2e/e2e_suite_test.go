package e2e_test

import (
	"context"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pageforge-ai/pageforge/internal/client"
	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/generator"
	"github.com/pageforge-ai/pageforge/internal/project"
	"github.com/pageforge-ai/pageforge/internal/server"
	"github.com/pageforge-ai/pageforge/internal/storage"
)

var (
	testServer *httptest.Server
	apiClient  *client.Client
	projects   *project.Service
	ctx        context.Context
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "E2E Suite")
}

var _ = BeforeSuite(func() {
	store := storage.New(GinkgoT().TempDir())
	bus := event.NewBus()
	projects = project.NewService(store, bus)
	budget := generator.NewBudget(30000)
	planner := generator.NewTemplatePlanner()

	cfg := server.DefaultConfig()
	cfg.EnableCORS = false
	cfg.StreamDelay = 0

	srv := server.New(cfg, projects, planner, budget, bus)
	testServer = httptest.NewServer(srv.Router())

	apiClient = client.New(testServer.URL)
	ctx = context.Background()
})

var _ = AfterSuite(func() {
	if testServer != nil {
		testServer.Close()
	}
	if projects != nil {
		projects.Close()
	}
})
