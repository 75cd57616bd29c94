package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Report is a successfully applied parameter value handed to the
// reporting collaborators.
type Report struct {
	RequestID uuid.UUID `json:"request_id"`
	Device    string    `json:"device"`
	Param     string    `json:"param"`
	Value     Value     `json:"value"`
	Source    Source    `json:"source"`
	Time      time.Time `json:"time"`
}

// Reporter receives applied values. The dispatcher calls Report exactly
// once per successful write.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, r Report) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, r Report) error {
	return f(ctx, r)
}

// Reporters fans a single report out to several reporters in order.
// Every reporter is called even if an earlier one fails; the failures are
// joined.
type Reporters []Reporter

// Report implements Reporter.
func (rs Reporters) Report(ctx context.Context, r Report) error {
	var errs []error
	for _, rep := range rs {
		if rep == nil {
			continue
		}
		if err := rep.Report(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopReporter struct{}

func (noopReporter) Report(context.Context, Report) error { return nil }
