package ado

import "context"

// Fetcher defines the operations a work item source should implement
type Fetcher interface {
	FetchWorkItems(ctx context.Context, project, queryID string) ([]WorkItem, error)
}

// NewFetcher creates a work item Fetcher backed by the Azure DevOps REST API.
func NewFetcher(organization, pat string) Fetcher {
	return NewClient(organization, pat)
}
