package services

import (
	"context"
	"fmt"
	"strconv"

	"indiana/internal/helpers"
	"indiana/internal/models"
)

// Work item fields and relation names
const (
	FieldTitle              = "/fields/System.Title"
	FieldDescription        = "/fields/System.Description"
	FieldAcceptanceCriteria = "/fields/Microsoft.VSTS.Common.AcceptanceCriteria"
	PathRelations           = "/relations/-"
	RelationParent          = "System.LinkTypes.Hierarchy-Reverse"
)

// WorkItemRepository is the work tracking API used by WorkItemService
type WorkItemRepository interface {
	CreateWorkItem(ctx context.Context, workItemType string, patch []models.PatchOperation) (*models.WorkItemResponse, error)
	WorkItemURL(id string) string
	QueryWorkItemIDs(ctx context.Context) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]models.WorkItemResponse, error)
}

// WorkItemService creates linked work items in a work tracking system
type WorkItemService struct {
	repo WorkItemRepository
}

// NewWorkItemService creates a new work item service
func NewWorkItemService(repo WorkItemRepository) *WorkItemService {
	return &WorkItemService{repo: repo}
}

// BuildPatch returns the patch document that creates item under parentURL
// (empty for a root)
func BuildPatch(item *models.WorkItem, parentURL string) []models.PatchOperation {
	patch := []models.PatchOperation{
		{Op: "add", Path: FieldTitle, Value: item.Title},
		{Op: "add", Path: FieldDescription, Value: item.Description},
	}

	if item.AcceptanceCriteria != "" {
		patch = append(patch, models.PatchOperation{Op: "add", Path: FieldAcceptanceCriteria, Value: item.AcceptanceCriteria})
	}

	if parentURL != "" {
		patch = append(patch, models.PatchOperation{
			Op:   "add",
			Path: PathRelations,
			Value: models.WorkItemRelation{
				Rel: RelationParent,
				URL: parentURL,
				Attributes: map[string]string{
					"comment": item.Description,
				},
			},
		})
	}

	return patch
}

// Create creates item and its subtree as linked work items
func (s *WorkItemService) Create(ctx context.Context, item *models.WorkItem, parent *Ref) (Ref, error) {
	parentURL := ""
	if parent != nil {
		parentURL = s.repo.WorkItemURL(parent.ID)
	}

	created, err := s.repo.CreateWorkItem(ctx, item.Type, BuildPatch(item, parentURL))
	if err != nil {
		return Ref{}, fmt.Errorf("failed to create %s '%s': %w", item.Type, item.Title, err)
	}

	ref := Ref{
		ID:     strconv.Itoa(created.ID),
		Depth:  childDepth(parent),
		Title:  item.Title,
		Parent: parent,
	}
	helpers.PrintSuccess("Created %s #%s: %s", item.Type, ref.ID, item.Title)

	if err := createChildren(ctx, item, ref, s.Create); err != nil {
		return ref, err
	}

	return ref, nil
}

// ListByProject lists every work item in the project
func (s *WorkItemService) ListByProject(ctx context.Context, project string) (*Diagnostics, error) {
	ids, err := s.repo.QueryWorkItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query work items: %w", err)
	}

	items, err := s.repo.GetWorkItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work items: %w", err)
	}

	diag := &Diagnostics{Project: project}
	for _, item := range items {
		diag.Items = append(diag.Items, Diagnostic{
			ID:    strconv.Itoa(item.ID),
			Type:  fieldString(item.Fields, "System.WorkItemType"),
			Title: fieldString(item.Fields, "System.Title"),
			State: fieldString(item.Fields, "System.State"),
		})
	}

	return diag, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
