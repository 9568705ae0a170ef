package health

import (
	"context"
	"time"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Name identifies what is being checked
	Name() string

	// Check performs the health check and returns the result
	Check(ctx context.Context) Result
}

// Report pairs a checker's name with its result
type Report struct {
	Name string
	Result
}

// Run performs every check in order. A check that outlives ctx reports
// unhealthy on its own, so Run always returns one report per checker.
func Run(ctx context.Context, checkers ...Checker) []Report {
	reports := make([]Report, 0, len(checkers))
	for _, c := range checkers {
		reports = append(reports, Report{Name: c.Name(), Result: c.Check(ctx)})
	}
	return reports
}

// Failed counts the unhealthy reports
func Failed(reports []Report) int {
	n := 0
	for _, r := range reports {
		if !r.Healthy {
			n++
		}
	}
	return n
}

func unhealthy(start time.Time, message string) Result {
	return Result{
		Healthy:   false,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
