// Package mapping translates raw Azure DevOps work item fields into the
// normalized ticket vocabulary. Every function is pure and total: no errors,
// every input lands inside the target set (status being the one deliberate
// exception, see MapStatus).
package mapping

import (
	"strings"

	"github.com/tuannvm/adosync/internal/models"
)

// MapPriority converts the numeric provider priority to a Priority.
// An absent priority (zero) maps to Medium, matching the ingestion pipeline
// this replaces; see CHANGELOG for the rationale behind pinning that variant.
func MapPriority(priority int) models.Priority {
	switch priority {
	case 0:
		return models.PriorityMedium
	case 1:
		return models.PriorityCritical
	case 2:
		return models.PriorityHigh
	case 3:
		return models.PriorityMedium
	}
	return models.PriorityLow
}

// statusGroups is checked in order; the first group whose keyword appears in
// the lowercased state wins.
var statusGroups = []struct {
	keywords []string
	status   models.Status
}{
	{[]string{"new", "proposed"}, models.StatusNew},
	{[]string{"active", "in progress", "committed"}, models.StatusInProgress},
	{[]string{"blocked", "impediment"}, models.StatusBlocked},
	{[]string{"review", "resolved"}, models.StatusReadyForReview},
	{[]string{"done", "closed", "completed"}, models.StatusCompleted},
}

// MapStatus converts a provider state string to a Status by case-insensitive
// substring matching. States matching no keyword group pass through as a raw
// status so nothing gets silently misfiled.
func MapStatus(state string) models.Status {
	stateLower := strings.ToLower(state)
	for _, group := range statusGroups {
		for _, kw := range group.keywords {
			if strings.Contains(stateLower, kw) {
				return group.status
			}
		}
	}
	return models.RawStatus(state)
}

// MapCategory classifies a work item from its type, title and tags. Checks run
// in precedence order: security and bug-fix keywords outrank the feature and
// infrastructure rules.
func MapCategory(workItemType, title string, tags []string) models.Category {
	typeLower := strings.ToLower(workItemType)
	titleLower := strings.ToLower(title)
	tagsLower := make([]string, len(tags))
	for i, t := range tags {
		tagsLower[i] = strings.ToLower(t)
	}
	combined := typeLower + " " + titleLower + " " + strings.Join(tagsLower, " ")

	if containsAny(combined, "security", "permission", "access", "auth") {
		return models.CategorySecurity
	}
	if containsAny(combined, "bug", "fix", "defect", "issue") {
		return models.CategoryBugFix
	}
	if containsAny(combined, "performance", "optimization", "speed", "slow") {
		return models.CategoryPerformance
	}
	if containsAny(combined, "documentation", "readme", "docs", "guide") {
		return models.CategoryDocumentation
	}
	if containsAny(typeLower, "feature", "user story", "epic") || strings.Contains(titleLower, "new feature") {
		return models.CategoryFeature
	}
	if containsAny(typeLower, "task", "request") {
		return models.CategoryInfrastructure
	}
	return models.CategoryInfrastructure
}

// EstimateEffort buckets a story point estimate into a delivery label. Bucket
// upper bounds are inclusive; zero means no estimate was set.
func EstimateEffort(storyPoints float64) string {
	switch {
	case storyPoints == 0:
		return "Not estimated"
	case storyPoints <= 2:
		return "1 week"
	case storyPoints <= 5:
		return "2 weeks"
	case storyPoints <= 8:
		return "3 weeks"
	}
	return "4+ weeks"
}

// SplitTags splits the provider's semicolon-delimited tag string into clean
// tag values, dropping empties.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
