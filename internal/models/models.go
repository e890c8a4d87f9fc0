package models

import "encoding/json"

// Priority is the normalized urgency of a ticket. The field mapper only ever
// produces one of the four constants below.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Category is the normalized work classification of a ticket.
type Category string

const (
	CategoryInfrastructure Category = "Infrastructure"
	CategorySecurity       Category = "Security"
	CategoryPerformance    Category = "Performance"
	CategoryFeature        Category = "Feature"
	CategoryBugFix         Category = "Bug Fix"
	CategoryDocumentation  Category = "Documentation"
)

// Status is a normalized workflow status. Provider states that match no known
// keyword group pass through verbatim with Known() reporting false; consumers
// must handle such values instead of trusting the closed set.
type Status struct {
	name  string
	known bool
}

var (
	StatusNew            = Status{name: "New", known: true}
	StatusInProgress     = Status{name: "In Progress", known: true}
	StatusBlocked        = Status{name: "Blocked", known: true}
	StatusReadyForReview = Status{name: "Ready for Review", known: true}
	StatusCompleted      = Status{name: "Completed", known: true}
)

var knownStatuses = map[string]Status{
	StatusNew.name:            StatusNew,
	StatusInProgress.name:     StatusInProgress,
	StatusBlocked.name:        StatusBlocked,
	StatusReadyForReview.name: StatusReadyForReview,
	StatusCompleted.name:      StatusCompleted,
}

// RawStatus wraps an unmapped provider state as a passthrough status.
func RawStatus(state string) Status {
	return Status{name: state}
}

// StatusFromString rebuilds a Status from its stored string form, restoring
// the known flag for values inside the closed set.
func StatusFromString(s string) Status {
	if st, ok := knownStatuses[s]; ok {
		return st
	}
	return RawStatus(s)
}

func (s Status) String() string { return s.name }

// Known reports whether the status belongs to the closed normalized set.
func (s Status) Known() bool { return s.known }

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.name)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = StatusFromString(name)
	return nil
}

// Ticket is the canonical normalized representation of one work item. IDs are
// globally unique strings of the form "WI-<provider id>".
type Ticket struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        Priority `json:"priority"`
	Status          Status   `json:"status"`
	Category        Category `json:"category"`
	Assignee        string   `json:"assignee"`
	CreatedDate     string   `json:"created_date"`
	TargetDate      string   `json:"target_date"`
	EstimatedEffort string   `json:"estimated_effort"`
	Tags            []string `json:"tags"`
	Project         string   `json:"project"`
	WorkItemType    string   `json:"work_item_type"`
	State           string   `json:"state"`
}

// Selection chooses which project partitions an import run covers. The zero
// value selects nothing; DefaultSelection is what callers get when they send
// no selection at all.
type Selection struct {
	ByteLOS          bool `json:"byteLos"`
	Byte             bool `json:"byte"`
	ProductMasters   bool `json:"productMasters"`
	IncludeCompleted bool `json:"includeCompleted"`
}

// DefaultSelection returns the default project selection: all three partitions
// enabled, completed items excluded.
func DefaultSelection() Selection {
	return Selection{ByteLOS: true, Byte: true, ProductMasters: true}
}

// Enabled reports whether the partition with the given key is selected.
func (s Selection) Enabled(key string) bool {
	switch key {
	case "byteLos":
		return s.ByteLOS
	case "byte":
		return s.Byte
	case "productMasters":
		return s.ProductMasters
	}
	return false
}

// Summary is the result of one import run. Errors is nil when every selected
// partition succeeded; a run with partition failures still counts as complete,
// so callers must inspect Errors even on nominal success.
type Summary struct {
	ImportedCount int            `json:"importedCount"`
	ByProject     map[string]int `json:"byProject"`
	Errors        []string       `json:"errors"`
}

// Stats holds server-side aggregate counts over the stored ticket set.
type Stats struct {
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"byPriority"`
	ByStatus   map[string]int `json:"byStatus"`
	ByAssignee map[string]int `json:"byAssignee"`
}
