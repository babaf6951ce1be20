package pipeline

import (
	"context"
	"log/slog"

	"cratedig/internal/applygate"
	"cratedig/internal/logging"
)

// Action is what the human chose for one reviewed proposal.
type Action int

const (
	// ActionApply commits the primary, or the chosen alternate.
	ActionApply Action = iota
	// ActionSkip leaves the file untouched.
	ActionSkip
	// ActionQuarantine diverts the file to the quarantine directory.
	ActionQuarantine
	// ActionAbort stops the batch before the next file.
	ActionAbort
)

// Review is the approver's answer: the action plus, for ActionApply, which
// outcome to commit (0 = primary, 1.. = alternates).
type Review struct {
	Action Action
	Choice int
}

// Approver presents one file's proposal to the human and blocks until they
// answer. Implementations must not hold locks or file handles while waiting.
type Approver interface {
	Review(result FileResult) (Review, error)
}

// BatchOutcome pairs a file's identification result with what the gate did.
type BatchOutcome struct {
	FileResult
	Apply applygate.Result
}

// Processor identifies one file. *Pipeline is the production implementation.
type Processor interface {
	Process(ctx context.Context, path string) FileResult
}

// Runner drives batch mode: identification overlaps across files through a
// bounded worker pool, while review and apply stay strictly sequential in
// input order.
type Runner struct {
	pipeline Processor
	gate     *applygate.Gate
	approver Approver
	mode     applygate.Mode
	workers  int
	logger   *slog.Logger
}

// NewRunner assembles a batch runner. Workers below 1 collapse to sequential
// collection.
func NewRunner(p Processor, gate *applygate.Gate, approver Approver, mode applygate.Mode, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		pipeline: p,
		gate:     gate,
		approver: approver,
		mode:     mode,
		workers:  workers,
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
}

// Run processes paths in order. Interrupts are honored between files only:
// a cancelled context stops the batch before the next review, never during
// an apply.
func (r *Runner) Run(ctx context.Context, paths []string) []BatchOutcome {
	results := make([]FileResult, len(paths))
	ready := make([]chan struct{}, len(paths))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	jobs := make(chan int)
	for w := 0; w < r.workers; w++ {
		go func() {
			for i := range jobs {
				results[i] = r.pipeline.Process(ctx, paths[i])
				close(ready[i])
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-ctx.Done():
				// Mark the rest as never processed.
				for j := i; j < len(paths); j++ {
					results[j] = FileResult{Path: paths[j], Err: ctx.Err()}
					close(ready[j])
				}
				return
			}
		}
	}()

	outcomes := make([]BatchOutcome, 0, len(paths))
	for i := range paths {
		<-ready[i]
		if ctx.Err() != nil {
			break
		}

		outcome := BatchOutcome{FileResult: results[i]}
		if outcome.Err != nil {
			outcome.Apply = applygate.Result{Outcome: applygate.OutcomeFailed, TargetPath: outcome.Path, Err: outcome.Err}
			outcomes = append(outcomes, outcome)
			continue
		}

		review, err := r.approver.Review(results[i])
		if err != nil {
			outcome.Apply = applygate.Result{Outcome: applygate.OutcomeFailed, TargetPath: outcome.Path, Err: err}
			outcomes = append(outcomes, outcome)
			continue
		}

		switch review.Action {
		case ActionAbort:
			r.logger.Info("batch aborted by user", logging.Int("processed", len(outcomes)))
			return outcomes
		case ActionSkip:
			outcome.Apply = r.gate.Skip(outcome.Descriptor)
		case ActionQuarantine:
			outcome.Apply = r.gate.QuarantineUnresolved(outcome.Descriptor)
		case ActionApply:
			chosen := outcome.Proposal.Primary
			if review.Choice > 0 && review.Choice <= len(outcome.Proposal.Alternates) {
				chosen = outcome.Proposal.Alternates[review.Choice-1]
			}
			outcome.Apply = r.gate.Apply(ctx, outcome.Descriptor, chosen, r.mode)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
