// Command seed-grades fills a running service with a synthetic term of grade
// events and verifies the progression and completion it serves back.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fausterrex/gradegoal/internal/seeding"
	"github.com/fausterrex/gradegoal/pkg/logger"
)

// Default configuration constants.
const (
	defaultStudents    = 200
	defaultCourses     = 5
	defaultWeeks       = 12
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultSettle      = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		students = flag.Int("students", defaultStudents, "Number of synthetic students")
		courses  = flag.Int("courses", defaultCourses, "Courses per student")
		weeks    = flag.Int("weeks", defaultWeeks, "Weeks of grade history per course")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", defaultSettle, "How long to wait for events to be applied")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Grade generator seed")
		output   = flag.String("output", "", "Optional JSON file for the generated events")
		format   = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format), logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	log := logger.Named("seed-grades")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &seeding.Config{
		BaseURL:    *baseURL,
		Students:   *students,
		Courses:    *courses,
		Weeks:      *weeks,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seed,
		OutputFile: *output,
	}
	if _, err := seeding.Run(ctx, cfg, log); err != nil {
		log.Error(ctx, "seeding failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
