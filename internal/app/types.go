package app

import (
	"context"
)

// Stage is one step of the install workflow.
type Stage interface {
	Name() string
	Execute(ctx context.Context, receipt *Receipt) error
}

// HeadFetcher retrieves an unreleased payload into dest and returns the
// fetched commit.
type HeadFetcher interface {
	FetchHead(ctx context.Context, url, branch, dest string) (string, error)
}
