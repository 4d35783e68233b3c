package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fausterrex/gradegoal/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	pollInterval        = 100 * time.Millisecond
)

// Run generates, submits and verifies a synthetic term against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting grade seeding",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("students", cfg.Students),
		logger.Int("courses", cfg.Courses),
		logger.Int("weeks", cfg.Weeks),
		logger.Int("workers", cfg.Workers),
	)

	status, err := client.Get(ctx, "/healthz", nil)
	if err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if status != http.StatusOK {
		return stats, fmt.Errorf("service health check failed with status: %d", status)
	}

	events, expect := Generate(cfg)
	stats.EventsGenerated = len(events)
	if cfg.OutputFile != "" {
		if err := saveEvents(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	if err := Submit(ctx, client, events, cfg.Workers, stats, log); err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}

	// Events are applied asynchronously; poll until the charts agree or Settle runs out.
	deadline := time.Now().Add(cfg.Settle)
	for {
		mismatches, err := Verify(ctx, client, expect, cfg.Workers)
		if err != nil {
			return stats, fmt.Errorf("verification requests failed: %w", err)
		}
		stats.Mismatches = mismatches
		if len(mismatches) == 0 || time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	stats.CoursesVerified = len(expect) - len(stats.Mismatches)
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("coursesVerified", stats.CoursesVerified),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
	)
	if len(stats.Mismatches) > 0 {
		for _, m := range stats.Mismatches {
			log.Warn(ctx, "mismatch", logger.String("detail", m))
		}
		return stats, fmt.Errorf("%w: %d courses disagree", ErrVerification, len(stats.Mismatches))
	}
	return stats, nil
}

func saveEvents(filename string, events []Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, b, filePermission); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}
