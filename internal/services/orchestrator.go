package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"indiana/internal/config"
	"indiana/internal/helpers"
	"indiana/internal/models"
	"indiana/internal/repositories"
)

// Ref identifies an artifact a backend created for a work item. Children
// receive their parent's Ref; the work item tree never stores it.
type Ref struct {
	// ID is the backend identifier: work item id, milestone or issue
	// number, empty for documents
	ID     string
	Depth  int
	Title  string
	Parent *Ref
}

// childDepth returns the depth of an item created under parent
func childDepth(parent *Ref) int {
	if parent == nil {
		return 0
	}
	return parent.Depth + 1
}

// Diagnostic is one artifact listed by ListByProject
type Diagnostic struct {
	ID    string
	Type  string
	Title string
	State string
}

// Diagnostics holds what a backend found in a project
type Diagnostics struct {
	Project string
	Items   []Diagnostic
}

// Orchestrator creates backlog artifacts in one backend
type Orchestrator interface {
	// Create creates item under parent (nil for a root), then every child in
	// order, each awaited before the next.
	Create(ctx context.Context, item *models.WorkItem, parent *Ref) (Ref, error)

	// ListByProject enumerates existing artifacts for operator visibility.
	ListByProject(ctx context.Context, project string) (*Diagnostics, error)
}

// Finisher is implemented by orchestrators that buffer output until every
// root has been created
type Finisher interface {
	Finish(ctx context.Context) error
}

// Validator is implemented by orchestrators that restrict the shape of the
// backlog; Run checks every root before the first Create
type Validator interface {
	ValidateBacklog(items []models.WorkItem) error
}

// Summary counts what a Run created
type Summary struct {
	Roots   int
	Created int
}

// New selects the backend named in cfg
func New(cfg *config.Config) (Orchestrator, error) {
	switch cfg.Orchestrator {
	case config.BackendAzureDevOps:
		return NewWorkItemService(repositories.NewAzureDevOpsRepository(cfg)), nil
	case config.BackendGitHub:
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		return NewIssueService(repositories.NewGitHubRepository(cfg), rng), nil
	case config.BackendMarkdown:
		return NewDocumentService(cfg.Output), nil
	default:
		return nil, fmt.Errorf("unknown orchestrator %q", cfg.Orchestrator)
	}
}

// Run creates every root in order, stopping at the first failure, then
// finishes buffered output
func Run(ctx context.Context, o Orchestrator, items []models.WorkItem) (*Summary, error) {
	summary := &Summary{}

	if v, ok := o.(Validator); ok {
		if err := v.ValidateBacklog(items); err != nil {
			return summary, err
		}
	}

	for i := range items {
		item := &items[i]
		helpers.PrintProgress(i+1, len(items), fmt.Sprintf("Creating %s", item.Title))

		if _, err := o.Create(ctx, item, nil); err != nil {
			return summary, err
		}

		summary.Roots++
		summary.Created += item.Count()
	}

	if f, ok := o.(Finisher); ok {
		if err := f.Finish(ctx); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// createChildren awaits create for each child of item in order
func createChildren(ctx context.Context, item *models.WorkItem, ref Ref, create func(ctx context.Context, child *models.WorkItem, parent *Ref) (Ref, error)) error {
	for i := range item.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		parent := ref
		if _, err := create(ctx, &item.Children[i], &parent); err != nil {
			return err
		}
	}
	return nil
}
