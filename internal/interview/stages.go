package interview

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-interviewer/internal/logger"
)

// stage is a single step of the analysis. Disabled stages are reported and skipped.
type stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool
	Reason() string
	Apply(ctx context.Context, r *run) error
}

type baseStage struct {
	name     string
	disabled bool
	reason   string
	apply    func(ctx context.Context, r *run) error
}

func newStage(name string, apply func(ctx context.Context, r *run) error) *baseStage {
	return &baseStage{name: name, apply: apply}
}

func (s *baseStage) Name() string { return s.name }

func (s *baseStage) Disable(reason string) {
	s.disabled = true
	s.reason = reason
}

func (s *baseStage) IsEnabled() bool { return !s.disabled }

func (s *baseStage) Reason() string { return s.reason }

func (s *baseStage) Apply(ctx context.Context, r *run) error { return s.apply(ctx, r) }

// disableByName marks the stage with the given name as disabled while keeping it in the list.
func disableByName(stages []stage, name, reason string) {
	for _, s := range stages {
		if s.Name() == name {
			s.Disable(reason)
		}
	}
}

// runStages executes the stages sequentially, stopping at the first failure.
func runStages(ctx context.Context, log *zap.Logger, stages []stage, r *run) error {
	for _, s := range stages {
		stageLog := logger.WithStage(log, s.Name())

		if !s.IsEnabled() {
			stageLog.Info("stage disabled", zap.String("reason", s.Reason()))
			r.analysis.Steps = append(r.analysis.Steps, Step{Name: s.Name(), Reason: s.Reason()})
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		if err := s.Apply(ctx, r); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		elapsed := time.Since(started)

		stageLog.Info("stage completed", zap.Duration("duration", elapsed))
		r.analysis.Steps = append(r.analysis.Steps, Step{Name: s.Name(), Enabled: true, Duration: elapsed})
	}

	return nil
}
