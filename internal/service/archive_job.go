package service

import (
	"context"
	"log/slog"
	"time"
)

// Archiver copies activity created in [since, until) to long-term storage.
type Archiver interface {
	ArchiveActivity(ctx context.Context, since, until time.Time) (int64, error)
}

// ArchiveJob archives the previous UTC day of activity once a day.
type ArchiveJob struct {
	archiver Archiver
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchiveJob creates an ArchiveJob that checks every interval, defaulting
// to one hour.
func NewArchiveJob(archiver Archiver, interval time.Duration, logger *slog.Logger) *ArchiveJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ArchiveJob{
		archiver: archiver,
		interval: interval,
		logger:   logger.With(slog.String("component", "archive_job")),
		now:      time.Now,
	}
}

// Run archives each completed day once until ctx is cancelled.
func (j *ArchiveJob) Run(ctx context.Context) error {
	var done time.Time
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		day := previousDay(j.now())
		if !day.Equal(done) {
			if err := j.ArchiveDay(ctx, day); err == nil {
				done = day
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ArchiveDay archives activity for the UTC day starting at day.
func (j *ArchiveJob) ArchiveDay(ctx context.Context, day time.Time) error {
	since := day.UTC()
	until := since.AddDate(0, 0, 1)
	n, err := j.archiver.ArchiveActivity(ctx, since, until)
	if err != nil {
		j.logger.ErrorContext(ctx, "activity archive failed",
			slog.String("day", since.Format("2006-01-02")),
			slog.String("error", err.Error()),
		)
		return err
	}
	j.logger.InfoContext(ctx, "activity archived",
		slog.String("day", since.Format("2006-01-02")),
		slog.Int64("entries", n),
	)
	return nil
}

func previousDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC)
}
