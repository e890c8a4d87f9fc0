// Package importer drives the ingestion pipeline: query each selected Azure
// DevOps project, aggregate the results into normalized tickets, and replace
// the stored set.
package importer

import (
	"context"
	"fmt"

	"github.com/tuannvm/adosync/internal/ado"
	"github.com/tuannvm/adosync/internal/config"
	"github.com/tuannvm/adosync/internal/logging"
	"github.com/tuannvm/adosync/internal/models"
)

// TicketStore is the persistence surface the importer needs.
type TicketStore interface {
	ReplaceAll(ctx context.Context, tickets []models.Ticket) error
}

// Importer orchestrates one full import run across the configured partitions.
type Importer struct {
	cfg     *config.Config
	fetcher ado.Fetcher
	store   TicketStore
}

// New creates an Importer over the given work item source and ticket store.
func New(cfg *config.Config, fetcher ado.Fetcher, store TicketStore) *Importer {
	return &Importer{cfg: cfg, fetcher: fetcher, store: store}
}

// Run executes one import over the selected partitions and replaces the
// stored ticket set with the outcome. A failing partition contributes zero
// items and one error string; the run still completes, so callers must check
// Summary.Errors even on success. Concurrent runs against the same store are
// not safe; the caller serializes them.
func (i *Importer) Run(ctx context.Context, sel models.Selection) (*models.Summary, error) {
	selected := make([]config.ProjectQuery, 0, len(i.cfg.Projects))
	for _, pq := range i.cfg.Projects {
		if sel.Enabled(pq.Key) {
			selected = append(selected, pq)
		}
	}
	logging.Infof("importing from %d selected projects", len(selected))

	var (
		collected []ado.WorkItem
		errs      []string
	)
	failed := make(map[string]bool)
	for _, pq := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := i.fetcher.FetchWorkItems(ctx, pq.Project, pq.QueryID)
		if err != nil {
			logging.Errorf("fetch from project %q failed: %v", pq.Project, err)
			errs = append(errs, fmt.Sprintf("%s: %v", pq.Project, err))
			failed[pq.Project] = true
			continue
		}
		collected = append(collected, items...)
	}

	tickets := Aggregate(collected, sel.IncludeCompleted)
	logging.Infof("aggregated %d tickets from %d raw work items", len(tickets), len(collected))

	if err := i.store.ReplaceAll(ctx, tickets); err != nil {
		return nil, fmt.Errorf("failed to replace stored tickets: %w", err)
	}

	// Failed partitions are reported through Errors, not as zero counts.
	byProject := make(map[string]int, len(selected))
	for _, pq := range selected {
		if failed[pq.Project] {
			continue
		}
		count := 0
		for _, t := range tickets {
			if t.Project == pq.Project {
				count++
			}
		}
		byProject[pq.Project] = count
	}

	return &models.Summary{
		ImportedCount: len(tickets),
		ByProject:     byProject,
		Errors:        errs,
	}, nil
}
