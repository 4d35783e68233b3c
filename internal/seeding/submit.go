package seeding

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fausterrex/gradegoal/pkg/logger"
)

const (
	maxAttempts  = 5
	retryBackoff = 50 * time.Millisecond
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// Submit posts events concurrently. Events of one course are sent in order
// by a single submitter so snapshots arrive chronologically; courses are
// spread across workers.
func Submit(ctx context.Context, client *Client, events []Event, workers int, stats *Stats, log logger.Logger) error {
	var accepted, duplicate, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, batch := range byCourse(events) {
		g.Go(func() error {
			for _, e := range batch {
				switch submitOne(gctx, client, e) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.EventsSuccessful = int(accepted.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsFailed = int(failed.Load())
	log.Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("failed", stats.EventsFailed),
	)
	return err
}

// submitOne retries on 429 with a linear backoff.
func submitOne(ctx context.Context, client *Client, e Event) outcome {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := client.Post(ctx, "/events", e, nil)
		switch {
		case err != nil:
			return outcomeFailed
		case status == http.StatusAccepted:
			return outcomeAccepted
		case status == http.StatusOK:
			return outcomeDuplicate
		case status != http.StatusTooManyRequests:
			return outcomeFailed
		}
		select {
		case <-ctx.Done():
			return outcomeFailed
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return outcomeFailed
}

func byCourse(events []Event) [][]Event {
	index := make(map[[2]string]int)
	var out [][]Event
	for _, e := range events {
		k := [2]string{e.StudentID, e.CourseID}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], e)
	}
	return out
}
