package adapters

import (
	"context"

	"github.com/oddspulse/oddspulse/internal/pkg/models"
)

// Adapter is the contract every bookmaker source satisfies. An adapter fetches
// one current snapshot and normalizes it into RawEventRecords; it must not
// retry, merge, or persist. That is the scheduler's job.
type Adapter interface {
	Code() string
	FetchSnapshot(ctx context.Context) ([]models.RawEventRecord, error)
}

// FetchError is returned by FetchSnapshot on network or parse failure.
type FetchError struct {
	Bookmaker string
	Err       error
}

func (e *FetchError) Error() string {
	return e.Bookmaker + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
