package importer

import (
	"fmt"
	"strings"

	"github.com/tuannvm/adosync/internal/ado"
	"github.com/tuannvm/adosync/internal/mapping"
	"github.com/tuannvm/adosync/internal/models"
)

// excludedStates marks a ticket as terminal when any of these appears in its
// original provider state, case-insensitively.
var excludedStates = []string{"done", "closed", "completed", "cancelled", "removed", "retired"}

// Aggregate collapses work items gathered from all partitions into the final
// normalized ticket set: deduplicate by id keeping the highest revision, map
// each survivor, then drop terminal items unless includeCompleted is set.
// Items without a usable id are skipped.
func Aggregate(items []ado.WorkItem, includeCompleted bool) []models.Ticket {
	// Revision-wins dedup. Encounter order is preserved so equal revisions
	// keep whichever partition was processed first.
	order := make([]int, 0, len(items))
	unique := make(map[int]ado.WorkItem, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		existing, seen := unique[item.ID]
		if !seen {
			order = append(order, item.ID)
			unique[item.ID] = item
		} else if item.Rev > existing.Rev {
			unique[item.ID] = item
		}
	}

	tickets := make([]models.Ticket, 0, len(order))
	for _, id := range order {
		ticket := normalize(unique[id])
		if !includeCompleted && isTerminal(ticket.State) {
			continue
		}
		tickets = append(tickets, ticket)
	}
	return tickets
}

// normalize maps one raw work item to its canonical ticket form.
func normalize(item ado.WorkItem) models.Ticket {
	fields := item.Fields
	tags := mapping.SplitTags(fields.Tags)

	title := fields.Title
	if title == "" {
		title = "Untitled"
	}
	assignee := "Unassigned"
	if fields.AssignedTo != nil && fields.AssignedTo.DisplayName != "" {
		assignee = fields.AssignedTo.DisplayName
	}
	targetDate := fields.TargetDate
	if targetDate == "" {
		targetDate = fields.CreatedDate
	}
	project := fields.TeamProject
	if project == "" {
		project = "Unknown"
	}

	return models.Ticket{
		ID:              fmt.Sprintf("WI-%d", item.ID),
		Title:           title,
		Description:     fields.Description,
		Priority:        mapping.MapPriority(fields.Priority),
		Status:          mapping.MapStatus(fields.State),
		Category:        mapping.MapCategory(fields.WorkItemType, title, tags),
		Assignee:        assignee,
		CreatedDate:     fields.CreatedDate,
		TargetDate:      targetDate,
		EstimatedEffort: mapping.EstimateEffort(fields.StoryPoints),
		Tags:            tags,
		Project:         project,
		WorkItemType:    fields.WorkItemType,
		State:           fields.State,
	}
}

// isTerminal checks the original provider state, not the normalized status,
// so unmapped terminal states still get filtered.
func isTerminal(state string) bool {
	stateLower := strings.ToLower(state)
	for _, excluded := range excludedStates {
		if strings.Contains(stateLower, excluded) {
			return true
		}
	}
	return false
}
