package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/internal/project"
	"github.com/pageforge-ai/pageforge/pkg/types"
)

// EmitFunc receives each stream event in order. Returning an error stops
// the run; the transport uses this to signal a gone client.
type EmitFunc func(ev types.Event) error

// Generator runs the build pipeline for one prompt, streaming progress
// events and persisting generated files through the project service.
type Generator struct {
	planner  Planner
	projects *project.Service
	budget   *Budget
	delay    time.Duration
	log      zerolog.Logger
}

// New creates a generator. delay paces typing and code streaming; use
// zero to run at full speed.
func New(planner Planner, projects *project.Service, budget *Budget, delay time.Duration) *Generator {
	return &Generator{
		planner:  planner,
		projects: projects,
		budget:   budget,
		delay:    delay,
		log:      logging.Component("generator"),
	}
}

// Run executes the pipeline for prompt. name is the project name; when
// empty it is derived from the prompt. Pipeline failures are reported as
// an error event on the stream, not as a returned error; the returned
// error is reserved for emit failures and context cancellation.
func (g *Generator) Run(ctx context.Context, prompt, name string, emit EmitFunc) error {
	if name == "" {
		name = deriveName(prompt)
	}

	if err := emit(&types.ThinkingEvent{Type: "thinking", Message: "Understanding your request..."}); err != nil {
		return err
	}

	intent, err := g.planner.DetectIntent(ctx, prompt)
	if err != nil {
		return g.fail(emit, fmt.Errorf("intent detection failed: %w", err))
	}
	g.budget.Consume(estimateTokens(prompt))

	if intent.Kind != IntentCreate {
		g.log.Debug().Str("intent", intent.Kind).Msg("Conversational prompt, no project created")
		return emit(&types.ConversationEvent{Type: "conversation", Message: intent.Response, Intent: intent.Kind})
	}

	if err := emit(&types.ThinkingEvent{Type: "thinking", Message: "Creating detailed plan..."}); err != nil {
		return err
	}

	tasks, err := g.planner.Plan(ctx, prompt)
	if err != nil {
		return g.fail(emit, fmt.Errorf("planning failed: %w", err))
	}

	todos := make([]types.Todo, 0, len(tasks))
	for _, task := range tasks {
		todo := types.Todo{ID: types.TodoIDFromInt(task.ID), Task: task.Task}
		todos = append(todos, todo)

		for i := 0; i <= len(task.Task); i++ {
			ev := &types.TodoTypingEvent{Type: "todo_typing", TodoID: todo.ID, PartialTask: task.Task[:i]}
			if err := emit(ev); err != nil {
				return err
			}
			if err := g.pause(ctx); err != nil {
				return err
			}
		}
		if err := emit(&types.TodoItemEvent{Type: "todo_item", Todo: todo}); err != nil {
			return err
		}
	}
	if err := emit(&types.TodoCompleteEvent{Type: "todo_complete"}); err != nil {
		return err
	}

	if err := emit(&types.ThinkingEvent{Type: "thinking", Message: "Generating project description..."}); err != nil {
		return err
	}
	description, err := g.planner.Describe(ctx, prompt)
	if err != nil {
		return g.fail(emit, fmt.Errorf("description failed: %w", err))
	}
	g.budget.Consume(estimateTokens(prompt + description))
	if err := emit(&types.DescriptionEvent{Type: "description", Description: description}); err != nil {
		return err
	}

	if err := emit(&types.ThinkingEvent{Type: "thinking", Message: "Setting up project structure..."}); err != nil {
		return err
	}
	proj, err := g.projects.Create(ctx, name, description)
	if err != nil {
		return g.fail(emit, fmt.Errorf("project creation failed: %w", err))
	}
	if err := emit(&types.ProjectCreatedEvent{Type: "project_created", ProjectID: proj.ID}); err != nil {
		return err
	}

	completed := 0
	complete := func(idx int) error {
		todos[idx].Completed = true
		completed++
		return emit(&types.TaskCompleteEvent{
			Type:           "task_complete",
			TaskID:         todos[idx].ID,
			CompletedCount: completed,
			TotalTasks:     len(todos),
		})
	}

	for i, task := range tasks {
		if task.File == "" {
			// Plan-only milestone, done once the project exists.
			if err := complete(i); err != nil {
				return err
			}
			continue
		}

		if err := emit(&types.TaskStartEvent{Type: "task_start", TaskID: todos[i].ID, Task: task.Task}); err != nil {
			return err
		}
		if err := emit(&types.CodeStartEvent{Type: "code_start", File: task.File}); err != nil {
			return err
		}

		lines, err := g.planner.FileLines(ctx, prompt, task.File)
		if err != nil {
			return g.fail(emit, fmt.Errorf("code generation for %s failed: %w", task.File, err))
		}

		var content strings.Builder
		for _, line := range lines {
			chunk := line + "\n"
			content.WriteString(chunk)
			if err := emit(&types.CodeLineEvent{Type: "code_line", File: task.File, Line: chunk}); err != nil {
				return err
			}
			if err := g.pause(ctx); err != nil {
				return err
			}
		}

		g.budget.Consume(estimateTokens(content.String()))
		info := g.budget.Info()
		if err := emit(&types.TokensUpdateEvent{Type: "tokens_update", RemainingTokens: info.Remaining, TokenLimit: info.Limit}); err != nil {
			return err
		}

		if err := g.projects.SaveFiles(ctx, proj.ID, map[string]string{task.File: content.String()}); err != nil {
			return g.fail(emit, fmt.Errorf("saving %s failed: %w", task.File, err))
		}

		ev := &types.CodeCompleteEvent{Type: "code_complete", File: task.File, Content: content.String(), FileSize: content.Len()}
		if err := emit(ev); err != nil {
			return err
		}
		if err := complete(i); err != nil {
			return err
		}
	}

	if err := emit(&types.CodeGeneratedEvent{
		Type:      "code_generated",
		ProjectID: proj.ID,
		Message:   "All code files generated and saved successfully",
	}); err != nil {
		return err
	}

	info := g.budget.Info()
	return emit(&types.CompleteEvent{
		Type:            "complete",
		ProjectID:       proj.ID,
		TodoList:        todos,
		Description:     description,
		RemainingTokens: info.Remaining,
		TokenLimit:      info.Limit,
		TokensUsed:      info.Used,
	})
}

// fail reports a pipeline error on the stream.
func (g *Generator) fail(emit EmitFunc, err error) error {
	g.log.Error().Err(err).Msg("Generation failed")
	return emit(&types.ErrorEvent{Type: "error", Message: err.Error()})
}

// pause sleeps for the configured pacing delay, honoring cancellation.
func (g *Generator) pause(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(g.delay):
		return nil
	}
}

// deriveName builds a project name from the prompt, as a fallback when
// the request does not carry one.
func deriveName(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if len(prompt) > 50 {
		prompt = prompt[:50]
	}
	return prompt
}
