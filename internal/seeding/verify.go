package seeding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fausterrex/gradegoal/internal/domain/types"
)

const tolerance = 1e-9

// Verify fetches the progression and completion of every expected course and
// returns one line per disagreement.
func Verify(ctx context.Context, client *Client, expect []Expectation, workers int) ([]string, error) {
	var (
		mu         sync.Mutex
		mismatches []string
	)
	report := func(format string, args ...any) {
		mu.Lock()
		mismatches = append(mismatches, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, exp := range expect {
		g.Go(func() error {
			base := "/students/" + exp.StudentID + "/courses/" + exp.CourseID
			var p types.Progression
			status, err := client.Get(gctx, base+"/progression", &p)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				report("%s/%s: progression status %d", exp.StudentID, exp.CourseID, status)
				return nil
			}
			if len(p.Weeks) != exp.Weeks {
				report("%s/%s: %d weeks, want %d", exp.StudentID, exp.CourseID, len(p.Weeks), exp.Weeks)
			}
			if n := len(p.Weeks); n > 0 && math.Abs(p.Weeks[n-1].Value-exp.Current) > tolerance {
				report("%s/%s: last week %.2f, want %.2f", exp.StudentID, exp.CourseID, p.Weeks[n-1].Value, exp.Current)
			}

			var c types.Completion
			if status, err = client.Get(gctx, base+"/completion", &c); err != nil {
				return err
			}
			if status != http.StatusOK || math.Abs(c.Percent-exp.Completion) > tolerance {
				report("%s/%s: completion %.2f (status %d), want %.2f", exp.StudentID, exp.CourseID, c.Percent, status, exp.Completion)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mismatches, nil
}
