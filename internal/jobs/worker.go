package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/langsheet/internal/profiles"
	"github.com/richxcame/langsheet/internal/progress"
	"github.com/richxcame/langsheet/internal/sheet"
	"github.com/richxcame/langsheet/pkg/errortracking"
	"github.com/richxcame/langsheet/pkg/logger"
	"github.com/richxcame/langsheet/pkg/storage"
	"go.uber.org/zap"
)

const (
	csvContentType = "text/csv; charset=utf-8"
	cleanupTimeout = 5 * time.Second
)

// errMissingSource means the sheet lacks the column every translation reads.
var errMissingSource = fmt.Errorf("input has no %q column", profiles.SourceColumn)

// run executes one job. Progress is written through update so a superseded
// job, here or on another replica, stops affecting the shared record.
func (s *Service) run(ctx context.Context, job *Job, table *sheet.Table, profile *profiles.Profile) {
	log := logger.WithContext(ctx).With(zap.String("job_id", job.ID), zap.String("profile", profile.Name))
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in translation job: %v", r)
			log.Error("translation job panicked", zap.Any("panic", r))
			s.fail(ctx, job, err)
		}
	}()

	filename, err := s.execute(ctx, job, table, profile)
	switch {
	case err == nil:
		jobsTotal.WithLabelValues(outcomeFinished).Inc()
		jobDuration.Observe(time.Since(started).Seconds())
		log.Info("translation job finished",
			zap.String("filename", filename),
			zap.Duration("duration", time.Since(started)),
		)
	case ctx.Err() != nil:
		log.Info("translation job stopped", zap.Error(ctx.Err()))
	case errors.Is(err, progress.ErrSuperseded):
		jobsTotal.WithLabelValues(outcomeCancelled).Inc()
		log.Info("translation job superseded by a newer job")
	default:
		log.Error("translation job failed", zap.Error(err))
		s.fail(ctx, job, err)
	}
}

func (s *Service) execute(ctx context.Context, job *Job, table *sheet.Table, profile *profiles.Profile) (string, error) {
	steps := profile.Plan(table.HasColumn(profiles.PivotColumn))
	rows := table.Len()

	if needsSource(steps) && !table.HasColumn(profiles.SourceColumn) {
		return "", errMissingSource
	}

	total := rows * profiles.TranslatedSteps(steps)
	if err := s.mustUpdate(ctx, job.ID, func(ctx context.Context) error {
		return s.store.SetTotal(ctx, job.ID, total)
	}); err != nil {
		return "", err
	}
	jobRows.Observe(float64(rows))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := s.applyStep(ctx, job, table, step); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, profile.Order); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}

	filename := storage.GenerateOutputKey(s.now())
	key := storage.JobOutputKey(job.ID, filename)
	if _, err := s.files.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), csvContentType); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}

	finishedAt := s.now().UTC()
	if err := s.mustUpdate(ctx, job.ID, func(ctx context.Context) error {
		return s.store.Finish(ctx, job.ID, filename, finishedAt)
	}); err != nil {
		s.discardOutput(ctx, key)
		return "", err
	}
	return filename, nil
}

// discardOutput removes a file no progress record points at.
func (s *Service) discardOutput(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.files.Delete(ctx, key); err != nil {
		logger.WithContext(ctx).Warn("failed to remove orphaned output", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) applyStep(ctx context.Context, job *Job, table *sheet.Table, step profiles.Step) error {
	switch step.Kind {
	case profiles.StepTranslate:
		texts, ok := table.Column(step.From)
		if !ok {
			return fmt.Errorf("input has no %q column", step.From)
		}
		translated, err := s.translator.Translate(ctx, texts, step.Target, step.Source)
		if err != nil {
			return err
		}
		if err := table.SetColumn(step.Column, translated); err != nil {
			return err
		}
		stepsTotal.WithLabelValues(step.Kind.String()).Inc()
		return s.mustUpdate(ctx, job.ID, func(ctx context.Context) error {
			return s.store.Add(ctx, job.ID, len(texts))
		})

	case profiles.StepKeep:
		stepsTotal.WithLabelValues(step.Kind.String()).Inc()
		return nil

	case profiles.StepCopy:
		values, ok := table.Column(step.From)
		if !ok {
			return table.SetConstant(step.Column, "")
		}
		stepsTotal.WithLabelValues(step.Kind.String()).Inc()
		return table.SetColumn(step.Column, values)

	case profiles.StepConstant:
		stepsTotal.WithLabelValues(step.Kind.String()).Inc()
		return table.SetConstant(step.Column, step.Value)

	default:
		return fmt.Errorf("unknown step kind %d", step.Kind)
	}
}

// mustUpdate is update for the worker: a superseded job gets
// progress.ErrSuperseded.
func (s *Service) mustUpdate(ctx context.Context, jobID string, fn func(ctx context.Context) error) error {
	active, err := s.update(ctx, jobID, fn)
	if err != nil {
		return err
	}
	if !active {
		return progress.ErrSuperseded
	}
	return nil
}

func (s *Service) fail(ctx context.Context, job *Job, cause error) {
	jobsTotal.WithLabelValues(outcomeFailed).Inc()
	errortracking.CaptureError(ctx, cause, map[string]string{
		"job_id":  job.ID,
		"profile": job.Profile,
	})

	// The job context may already be cancelled; the record still needs the error.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	at := s.now().UTC()
	if _, err := s.update(writeCtx, job.ID, func(ctx context.Context) error {
		return s.store.Fail(ctx, job.ID, cause.Error(), at)
	}); err != nil && !errors.Is(err, progress.ErrSuperseded) {
		logger.WithContext(ctx).Error("failed to record job failure", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func needsSource(steps []profiles.Step) bool {
	for _, step := range steps {
		if (step.Kind == profiles.StepTranslate || step.Kind == profiles.StepCopy) && step.From == profiles.SourceColumn {
			return true
		}
	}
	return false
}
