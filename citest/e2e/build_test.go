package e2e_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pageforge-ai/pageforge/internal/build"
	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/filesync"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// snapshotRecorder collects every published build snapshot so specs can
// assert on intermediate phases, not just the final state.
type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots []types.SessionState
}

func (r *snapshotRecorder) record(state types.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, state)
}

func (r *snapshotRecorder) latest() types.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return types.NewSessionState()
	}
	return r.snapshots[len(r.snapshots)-1]
}

func (r *snapshotRecorder) phases() []types.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Phase
	for _, s := range r.snapshots {
		if len(out) == 0 || out[len(out)-1] != s.Phase {
			out = append(out, s.Phase)
		}
	}
	return out
}

var _ = Describe("Build Workflows", func() {
	var (
		controller *build.Controller
		recorder   *snapshotRecorder
		bus        *event.Bus
		unsub      func()
	)

	fastPolicy := filesync.Policy{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		Multiplier:  2,
	}

	BeforeEach(func() {
		bus = event.NewBus()
		recorder = &snapshotRecorder{}
		controller = build.NewController(apiClient, fastPolicy, bus)
		unsub = controller.Subscribe(recorder.record)
	})

	AfterEach(func() {
		if unsub != nil {
			unsub()
		}
		controller.Cancel()
		bus.Close()
	})

	Describe("Full Page Generation", func() {
		It("should build a complete project from a prompt", func() {
			err := controller.Start(ctx, "build a coffee shop website with a menu")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() types.Phase {
				return recorder.latest().Phase
			}, 30*time.Second, 50*time.Millisecond).Should(Equal(types.PhaseReady))

			final := recorder.latest()
			Expect(final.ProjectID).NotTo(BeEmpty())
			Expect(final.Error).To(BeEmpty())
			Expect(final.FilesUnavailable).To(BeFalse())

			Expect(final.Files).To(HaveLen(3))
			for _, name := range []string{"index.html", "style.css", "script.js"} {
				Expect(final.Files).To(HaveKey(name))
				Expect(final.Files[name]).NotTo(BeEmpty())
			}

			Expect(final.Todos).NotTo(BeEmpty())
			for _, todo := range final.Todos {
				Expect(todo.Completed).To(BeTrue(), "todo %q should be completed", todo.Task)
			}

			Expect(final.Tokens.Limit).To(Equal(30000))
			Expect(final.Tokens.Remaining).To(BeNumerically("<", final.Tokens.Limit))
		})

		It("should pass through the expected phases in order", func() {
			err := controller.Start(ctx, "build a portfolio page for a photographer")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() types.Phase {
				return recorder.latest().Phase
			}, 30*time.Second, 50*time.Millisecond).Should(Equal(types.PhaseReady))

			phases := recorder.phases()
			Expect(phases[0]).To(Equal(types.PhaseThinking))
			Expect(phases).To(ContainElement(types.PhaseGenerating))
			Expect(phases[len(phases)-1]).To(Equal(types.PhaseReady))
		})

		It("should register the project with the server", func() {
			err := controller.Start(ctx, "build a landing page for a bakery")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() types.Phase {
				return recorder.latest().Phase
			}, 30*time.Second, 50*time.Millisecond).Should(Equal(types.PhaseReady))

			projectID := recorder.latest().ProjectID
			list, err := apiClient.ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())

			found := false
			for _, p := range list {
				if p.ID == projectID {
					found = true
					break
				}
			}
			Expect(found).To(BeTrue(), "generated project should be listed")
		})
	})

	Describe("Conversational Prompts", func() {
		It("should short-circuit without creating a project", func() {
			before, err := apiClient.ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())

			err = controller.Start(ctx, "hello, who are you?")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() types.Phase {
				return recorder.latest().Phase
			}, 10*time.Second, 50*time.Millisecond).Should(Equal(types.PhaseConversational))

			final := recorder.latest()
			Expect(final.ProjectID).To(BeEmpty())
			Expect(final.Description).NotTo(BeEmpty(), "conversational reply should be surfaced")

			after, err := apiClient.ListProjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(after)).To(Equal(len(before)))
		})
	})

	Describe("Preemption", func() {
		It("should let a second build take over cleanly", func() {
			err := controller.Start(ctx, "build a site for a record store")
			Expect(err).NotTo(HaveOccurred())

			// Preempt almost immediately with a different prompt.
			err = controller.Start(ctx, "build a page for a flower shop")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() types.Phase {
				return recorder.latest().Phase
			}, 30*time.Second, 50*time.Millisecond).Should(Equal(types.PhaseReady))

			final := recorder.latest()
			Expect(final.Error).To(BeEmpty())
			Expect(final.Files).To(HaveLen(3))
		})
	})

	Describe("Token Budget", func() {
		It("should report a shrinking budget across builds", func() {
			infoBefore, err := apiClient.GetTokenInfo(ctx)
			Expect(err).NotTo(HaveOccurred())

			err = controller.Start(ctx, "build a page for a book club")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() types.Phase {
				return recorder.latest().Phase
			}, 30*time.Second, 50*time.Millisecond).Should(Equal(types.PhaseReady))

			infoAfter, err := apiClient.GetTokenInfo(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(infoAfter.Remaining).To(BeNumerically("<", infoBefore.Remaining))
			Expect(infoAfter.Limit).To(Equal(infoBefore.Limit))
		})
	})
})
