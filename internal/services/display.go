package services

import (
	"strings"

	"indiana/internal/helpers"
	"indiana/internal/models"
)

// BacklogStats counts the nodes of a backlog by depth
type BacklogStats struct {
	Epics    int
	Features int
	Stories  int
	Deeper   int
}

// CountBacklog tallies the nodes of items by role
func CountBacklog(items []models.WorkItem) BacklogStats {
	var stats BacklogStats
	models.Walk(items, func(_ *models.WorkItem, depth int) error {
		switch depth {
		case 0:
			stats.Epics++
		case 1:
			stats.Features++
		case 2:
			stats.Stories++
		default:
			stats.Deeper++
		}
		return nil
	})
	return stats
}

// DisplayBacklog displays the backlog tree in a formatted way
func DisplayBacklog(items []models.WorkItem) {
	helpers.PrintTitle("Backlog")
	helpers.PrintSeparator()

	models.Walk(items, func(item *models.WorkItem, depth int) error {
		indent := strings.Repeat("  ", depth)
		role := models.RoleForDepth(depth)
		if role == "" {
			role = "Item"
		}

		helpers.PrintInfo("%s%s: %s", indent, role, item.Title)
		if item.Type != "" {
			helpers.PrintInfo("%s  Type: %s", indent, item.Type)
		}
		if item.Description != "" {
			helpers.PrintInfo("%s  Description: %s", indent, item.Description)
		}
		if item.AcceptanceCriteria != "" {
			helpers.PrintInfo("%s  Acceptance Criteria:", indent)
			for _, line := range strings.Split(item.AcceptanceCriteria, "\n") {
				helpers.PrintInfo("%s    %s", indent, line)
			}
		}
		if depth == 0 {
			helpers.PrintSeparator()
		}
		return nil
	})

	stats := CountBacklog(items)
	helpers.PrintInfo("Summary: %d epics, %d features, %d user stories", stats.Epics, stats.Features, stats.Stories)
	if stats.Deeper > 0 {
		helpers.PrintWarning("%d items are nested below user stories", stats.Deeper)
	}
}

// DisplayDiagnostics displays what ListByProject found
func DisplayDiagnostics(diag *Diagnostics) {
	helpers.PrintTitle("Project: %s", diag.Project)
	helpers.PrintSeparator()

	if len(diag.Items) == 0 {
		helpers.PrintInfo("Nothing to list")
		return
	}

	for _, item := range diag.Items {
		helpers.PrintInfo("#%s [%s] %s (%s)", item.ID, item.Type, item.Title, item.State)
	}

	helpers.PrintSeparator()
	helpers.PrintInfo("Total: %d", len(diag.Items))
}
