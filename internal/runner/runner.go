package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spachava753/pottery/internal/action"
	"github.com/spachava753/pottery/internal/config"
	"github.com/spachava753/pottery/internal/models"
)

// Invoker runs a single trigger.
type Invoker interface {
	Invoke(ctx context.Context, name string, fields models.Fields) (*models.Outcome, error)
}

// Runner executes flows against a shared set of fields.
type Runner struct {
	invoker Invoker

	mu     sync.Mutex
	fields models.Fields
}

// New creates a runner starting from the given fields.
func New(invoker Invoker, fields models.Fields) *Runner {
	return &Runner{
		invoker: invoker,
		fields:  fields.Clone(),
	}
}

// Fields returns a copy of the current field values.
func (r *Runner) Fields() models.Fields {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fields.Clone()
}

// Run executes every step of the flow in order. A failed step ends the flow
// unless ContinueOnError is set; cancellation ends it between steps.
func (r *Runner) Run(ctx context.Context, flow models.Flow) (*models.FlowResult, error) {
	for i, step := range flow.Steps {
		for _, inv := range step.Invocations() {
			if _, ok := action.Lookup(inv.Trigger); !ok {
				return nil, fmt.Errorf("step[%d]: %w: %s", i, action.ErrUnknownTrigger, inv.Trigger)
			}
		}
	}

	result := &models.FlowResult{
		RunID:      uuid.NewString(),
		FlowName:   flow.Name,
		TotalSteps: len(flow.Steps),
		StartedAt:  time.Now(),
	}
	log := slog.With("run", result.RunID, "flow", flow.Name)

	r.apply(flow.Fields)

	for i, step := range flow.Steps {
		if ctx.Err() != nil {
			log.Info("flow cancelled", "remaining_steps", len(flow.Steps)-i)
			result.Cancelled = true
			result.SkippedSteps = len(flow.Steps) - i
			break
		}

		outcomes, err := r.runStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step[%d]: %w", i, err)
		}
		result.Outcomes = append(result.Outcomes, outcomes...)

		failed := false
		for _, o := range outcomes {
			if !o.Success {
				failed = true
			}
		}

		log.Debug("step finished", "step", i, "invocations", len(outcomes), "failed", failed)

		if ctx.Err() != nil {
			log.Info("flow cancelled", "step", i, "remaining_steps", len(flow.Steps)-i-1)
			result.Cancelled = true
			result.SkippedSteps = len(flow.Steps) - i - 1
			break
		}

		if failed && !flow.ContinueOnError {
			result.SkippedSteps = len(flow.Steps) - i - 1
			if result.SkippedSteps > 0 {
				log.Info("stopping flow after failed step", "step", i, "skipped_steps", result.SkippedSteps)
			}
			break
		}
	}

	aggregate(result)
	return result, nil
}

func (r *Runner) runStep(ctx context.Context, step models.Step) ([]*models.Outcome, error) {
	if len(step.Parallel) == 0 {
		r.apply(step.Fields)
		outcome, err := r.invoker.Invoke(ctx, step.Trigger, r.Fields())
		if err != nil {
			return nil, err
		}
		r.apply(outcome.Copied)
		return []*models.Outcome{outcome}, nil
	}

	// Each member sees the fields as they were when the group started and
	// its updates land in completion order.
	snapshot := r.Fields()
	outcomes := make([]*models.Outcome, len(step.Parallel))

	g, gctx := errgroup.WithContext(ctx)
	for i, inv := range step.Parallel {
		g.Go(func() error {
			fields := snapshot.Clone()
			fields.Merge(inv.Fields)

			outcome, err := r.invoker.Invoke(gctx, inv.Trigger, fields)
			if err != nil {
				return err
			}

			r.mu.Lock()
			r.fields.Merge(inv.Fields)
			r.fields.Merge(outcome.Copied)
			r.mu.Unlock()

			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) apply(f models.Fields) {
	if len(f) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields.Merge(f)
}

func aggregate(result *models.FlowResult) {
	result.EndedAt = time.Now()
	result.TotalDurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()
	result.Invocations = len(result.Outcomes)
	for _, o := range result.Outcomes {
		if o.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
}

// RunFromFile loads a flow file and runs it.
func (r *Runner) RunFromFile(ctx context.Context, path string) (*models.FlowResult, error) {
	flow, err := config.LoadFlow(path)
	if err != nil {
		return nil, fmt.Errorf("loading flow: %w", err)
	}
	return r.Run(ctx, flow)
}
