package models

import (
	"fmt"
	"strings"
	"time"
)

// WorkSummary records the outcome of one pipeline stage for one
// tenant (or the cross-tenant cleanup pass). Stages accumulate
// errors here instead of raising past tenant boundaries; the
// orchestrator aggregates the summaries at the end of a run.
type WorkSummary struct {
	// This is set to true when the stage actually runs. Skipped
	// stages (disabled tenant, failed preconditions) stay false.
	Attempted bool

	// Errors is a list of strings describing what went wrong during
	// the stage.
	Errors []string

	// StartedAt describes when the stage started. If
	// StartedAt.IsZero(), the stage has not run.
	StartedAt time.Time

	// FinishedAt describes when the stage completed. Note that the
	// stage may have completed without succeeding; check Succeeded().
	FinishedAt time.Time
}

func NewWorkSummary() *WorkSummary {
	return &WorkSummary{
		Attempted:  false,
		Errors:     make([]string, 0),
		StartedAt:  time.Time{},
		FinishedAt: time.Time{},
	}
}

func (summary *WorkSummary) Start() {
	summary.StartedAt = time.Now().UTC()
}

func (summary *WorkSummary) Started() bool {
	return !summary.StartedAt.IsZero()
}

func (summary *WorkSummary) Finish() {
	summary.FinishedAt = time.Now().UTC()
}

func (summary *WorkSummary) Finished() bool {
	return !summary.FinishedAt.IsZero()
}

func (summary *WorkSummary) RunTime() time.Duration {
	startTime := summary.StartedAt
	if startTime.IsZero() {
		return time.Duration(0)
	}
	endTime := summary.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(startTime)
}

func (summary *WorkSummary) Succeeded() bool {
	return summary.Finished() && len(summary.Errors) == 0
}

func (summary *WorkSummary) AddError(format string, a ...interface{}) {
	summary.Errors = append(summary.Errors, fmt.Sprintf(format, a...))
}

func (summary *WorkSummary) ClearErrors() {
	summary.Errors = make([]string, 0)
}

func (summary *WorkSummary) HasErrors() bool {
	return len(summary.Errors) > 0
}

func (summary *WorkSummary) FirstError() string {
	firstError := ""
	if len(summary.Errors) > 0 {
		firstError = summary.Errors[0]
	}
	return firstError
}

func (summary *WorkSummary) AllErrorsAsString() string {
	if len(summary.Errors) > 0 {
		return strings.Join(summary.Errors, "\n")
	}
	return ""
}
