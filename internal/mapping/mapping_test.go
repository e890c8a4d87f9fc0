package mapping

import (
	"testing"

	"github.com/tuannvm/adosync/internal/models"
)

func TestMapPriority(t *testing.T) {
	cases := []struct {
		priority int
		want     models.Priority
	}{
		{1, models.PriorityCritical},
		{2, models.PriorityHigh},
		{3, models.PriorityMedium},
		{4, models.PriorityLow},
		{9, models.PriorityLow},
	}
	for _, tc := range cases {
		if got := MapPriority(tc.priority); got != tc.want {
			t.Errorf("MapPriority(%d) = %q, want %q", tc.priority, got, tc.want)
		}
	}
}

// An absent priority maps to Medium. This pins the default the importer
// inherited; see CHANGELOG before changing it.
func TestMapPriorityAbsentDefaultsToMedium(t *testing.T) {
	if got := MapPriority(0); got != models.PriorityMedium {
		t.Fatalf("MapPriority(0) = %q, want %q", got, models.PriorityMedium)
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		state string
		want  models.Status
	}{
		{"New", models.StatusNew},
		{"Proposed", models.StatusNew},
		{"Active", models.StatusInProgress},
		{"In Progress", models.StatusInProgress},
		{"Committed", models.StatusInProgress},
		{"Blocked", models.StatusBlocked},
		{"Impediment", models.StatusBlocked},
		{"In Review", models.StatusReadyForReview},
		{"Resolved", models.StatusReadyForReview},
		{"Done", models.StatusCompleted},
		{"Closed", models.StatusCompleted},
		{"Completed", models.StatusCompleted},
		{"DONE", models.StatusCompleted},
	}
	for _, tc := range cases {
		got := MapStatus(tc.state)
		if got != tc.want {
			t.Errorf("MapStatus(%q) = %q, want %q", tc.state, got, tc.want)
		}
		if !got.Known() {
			t.Errorf("MapStatus(%q) should be a known status", tc.state)
		}
	}
}

func TestMapStatusPassthrough(t *testing.T) {
	got := MapStatus("Deferred")
	if got.Known() {
		t.Fatalf("MapStatus(%q) should not be a known status", "Deferred")
	}
	if got.String() != "Deferred" {
		t.Fatalf("MapStatus passthrough = %q, want original state", got.String())
	}
}

func TestMapCategory(t *testing.T) {
	cases := []struct {
		name         string
		workItemType string
		title        string
		tags         []string
		want         models.Category
	}{
		{"security keyword in title", "Task", "Fix auth token leak", nil, models.CategorySecurity},
		{"security outranks bug", "Bug", "Permission check broken", nil, models.CategorySecurity},
		{"bug type", "Bug", "Login crash", nil, models.CategoryBugFix},
		{"fix in title", "User Story", "Fix typo on landing page", nil, models.CategoryBugFix},
		{"performance tag", "Task", "Page load", []string{"slow"}, models.CategoryPerformance},
		{"documentation", "Task", "Update README", nil, models.CategoryDocumentation},
		{"user story type", "User Story", "Checkout flow", nil, models.CategoryFeature},
		{"epic type", "Epic", "Payments", nil, models.CategoryFeature},
		{"new feature in title", "Item", "new feature toggle", nil, models.CategoryFeature},
		{"task type", "Task", "Rotate certificates", nil, models.CategoryInfrastructure},
		{"unclassified", "Item", "Misc work", nil, models.CategoryInfrastructure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapCategory(tc.workItemType, tc.title, tc.tags)
			if got != tc.want {
				t.Errorf("MapCategory(%q, %q, %v) = %q, want %q", tc.workItemType, tc.title, tc.tags, got, tc.want)
			}
		})
	}
}

func TestEstimateEffort(t *testing.T) {
	cases := []struct {
		points float64
		want   string
	}{
		{0, "Not estimated"},
		{1, "1 week"},
		{2, "1 week"},
		{3, "2 weeks"},
		{5, "2 weeks"},
		{8, "3 weeks"},
		{8.5, "4+ weeks"},
		{13, "4+ weeks"},
	}
	for _, tc := range cases {
		if got := EstimateEffort(tc.points); got != tc.want {
			t.Errorf("EstimateEffort(%v) = %q, want %q", tc.points, got, tc.want)
		}
	}
}

func TestSplitTags(t *testing.T) {
	got := SplitTags("urgent; backend ;; security")
	want := []string{"urgent", "backend", "security"}
	if len(got) != len(want) {
		t.Fatalf("SplitTags returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitTags returned %v, want %v", got, want)
		}
	}
	if SplitTags("") != nil {
		t.Fatalf("SplitTags(\"\") should be nil")
	}
}
