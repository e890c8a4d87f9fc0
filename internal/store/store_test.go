package store

import (
	"context"
	"database/sql"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/tuannvm/adosync/internal/models"
)

// openTestStore connects to the database named by TEST_DATABASE_URL and
// starts from a clean slate. Tests needing a real database skip when it is
// unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	ctx := context.Background()
	s, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS tickets`); err != nil {
		t.Fatalf("drop tickets table: %v", err)
	}
	return s
}

func sampleTickets() []models.Ticket {
	return []models.Ticket{
		{
			ID:              "WI-1",
			Title:           "Login crash",
			Priority:        models.PriorityCritical,
			Status:          models.StatusInProgress,
			Category:        models.CategoryBugFix,
			Assignee:        "Dana Park",
			CreatedDate:     "2025-06-02T09:00:00Z",
			TargetDate:      "2025-06-20T09:00:00Z",
			EstimatedEffort: "1 week",
			Tags:            []string{"urgent"},
			Project:         "Byte LOS",
			WorkItemType:    "Bug",
			State:           "Active",
		},
		{
			ID:              "WI-2",
			Title:           "Rotate certificates",
			Priority:        models.PriorityMedium,
			Status:          models.StatusNew,
			Category:        models.CategoryInfrastructure,
			Assignee:        "Unassigned",
			CreatedDate:     "2025-06-01T09:00:00Z",
			TargetDate:      "2025-06-01T09:00:00Z",
			EstimatedEffort: "Not estimated",
			Project:         "BYTE",
			WorkItemType:    "Task",
			State:           "New",
		},
	}
}

func TestUninitializedReadsAreEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tickets, err := s.AllTickets(ctx)
	if err != nil {
		t.Fatalf("AllTickets on missing table: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(tickets))
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on missing table: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tickets := sampleTickets()
	for i := 0; i < 2; i++ {
		if err := s.Upsert(ctx, tickets); err != nil {
			t.Fatalf("Upsert pass %d: %v", i+1, err)
		}
	}

	stored, err := s.AllTickets(ctx)
	if err != nil {
		t.Fatalf("AllTickets: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("got %d tickets, want 2", len(stored))
	}
	// Ordered by created_date descending.
	if stored[0].ID != "WI-1" || stored[1].ID != "WI-2" {
		t.Fatalf("unexpected order: %s, %s", stored[0].ID, stored[1].ID)
	}
	if stored[0].Status != models.StatusInProgress {
		t.Fatalf("status round trip: %+v", stored[0].Status)
	}
	if !reflect.DeepEqual([]string(stored[0].Tags), []string{"urgent"}) {
		t.Fatalf("tags round trip: %v", stored[0].Tags)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tickets := sampleTickets()
	if err := s.Upsert(ctx, tickets); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	tickets[0].Title = "Login crash (reopened)"
	tickets[0].Priority = models.PriorityHigh
	if err := s.Upsert(ctx, tickets[:1]); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	stored, err := s.AllTickets(ctx)
	if err != nil {
		t.Fatalf("AllTickets: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("update must not add rows, got %d", len(stored))
	}
	if stored[0].Title != "Login crash (reopened)" || stored[0].Priority != models.PriorityHigh {
		t.Fatalf("update not applied: %+v", stored[0])
	}
}

func TestReplaceAllRemovesStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := s.ReplaceAll(ctx, sampleTickets()); err != nil {
		t.Fatalf("first ReplaceAll: %v", err)
	}
	if err := s.ReplaceAll(ctx, sampleTickets()[:1]); err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}

	stored, err := s.AllTickets(ctx)
	if err != nil {
		t.Fatalf("AllTickets: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != "WI-1" {
		t.Fatalf("replace should drop absent tickets, got %+v", stored)
	}
}

func TestStatsGrouping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Upsert(ctx, sampleTickets()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.ByPriority["Critical"] != 1 || stats.ByPriority["Medium"] != 1 {
		t.Errorf("byPriority = %v", stats.ByPriority)
	}
	if stats.ByStatus["In Progress"] != 1 || stats.ByStatus["New"] != 1 {
		t.Errorf("byStatus = %v", stats.ByStatus)
	}
	if stats.ByAssignee["Dana Park"] != 1 || stats.ByAssignee["Unassigned"] != 1 {
		t.Errorf("byAssignee = %v", stats.ByAssignee)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(sql.NullTime{}); got != "" {
		t.Errorf("null timestamp = %q, want empty", got)
	}
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if got := formatTimestamp(sql.NullTime{Time: ts, Valid: true}); got != "2025-06-01T09:00:00Z" {
		t.Errorf("formatTimestamp = %q", got)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("empty string should map to nil")
	}
	if nullIfEmpty("2025-06-01T09:00:00Z") == nil {
		t.Error("non-empty string should pass through")
	}
}
