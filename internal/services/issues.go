package services

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"indiana/internal/helpers"
	"indiana/internal/models"
)

// colorAttempts bounds the search for a label color not used by an existing label
const colorAttempts = 16

// IssueRepository is the issue tracker API used by IssueService
type IssueRepository interface {
	ListLabels(ctx context.Context) ([]models.Label, error)
	CreateLabel(ctx context.Context, label models.Label) (*models.Label, error)
	ListMilestones(ctx context.Context) ([]models.Milestone, error)
	CreateMilestone(ctx context.Context, milestone models.Milestone) (*models.Milestone, error)
	CreateIssue(ctx context.Context, issue models.IssueRequest) (*models.Issue, error)
	CreateComment(ctx context.Context, number int, body string) (*models.Comment, error)
	ListIssues(ctx context.Context) ([]models.Issue, error)
}

// IssueService maps the backlog onto an issue tracker: an Epic becomes a
// milestone, Features become issues labelled with the Epic's slug, User
// Stories become issues labelled with their Feature's slug.
type IssueService struct {
	repo IssueRepository
	rng  *rand.Rand
}

// NewIssueService creates a new issue service; rng picks label colors
func NewIssueService(repo IssueRepository, rng *rand.Rand) *IssueService {
	return &IssueService{repo: repo, rng: rng}
}

// Create creates the artifact for item according to its depth
func (s *IssueService) Create(ctx context.Context, item *models.WorkItem, parent *Ref) (Ref, error) {
	switch depth := childDepth(parent); depth {
	case 0:
		return s.createEpic(ctx, item)
	case 1:
		return s.createFeature(ctx, item, parent)
	case 2:
		return s.createStory(ctx, item, parent)
	default:
		return Ref{}, fmt.Errorf("%w: '%s' is at depth %d, issue tracker supports %d",
			models.ErrDepthExceeded, item.Title, depth, models.MaxRoleDepth)
	}
}

// ValidateBacklog rejects any item nested below User Story
func (s *IssueService) ValidateBacklog(items []models.WorkItem) error {
	return models.ValidateTree(items, models.MaxRoleDepth)
}

func (s *IssueService) createEpic(ctx context.Context, item *models.WorkItem) (Ref, error) {
	if err := models.ValidateTree([]models.WorkItem{*item}, models.MaxRoleDepth); err != nil {
		return Ref{}, err
	}

	if err := s.ensureLabels(ctx, item); err != nil {
		return Ref{}, err
	}

	milestone, err := s.ensureMilestone(ctx, item)
	if err != nil {
		return Ref{}, err
	}

	ref := Ref{ID: strconv.Itoa(milestone.Number), Depth: 0, Title: item.Title}

	if err := createChildren(ctx, item, ref, s.Create); err != nil {
		return ref, err
	}

	return ref, nil
}

func (s *IssueService) createFeature(ctx context.Context, item *models.WorkItem, epic *Ref) (Ref, error) {
	milestone, err := strconv.Atoi(epic.ID)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid milestone number %q for '%s': %w", epic.ID, epic.Title, err)
	}

	issue, err := s.repo.CreateIssue(ctx, models.IssueRequest{
		Title:     item.Title,
		Body:      item.Description,
		Labels:    []string{models.Sanitize(epic.Title)},
		Milestone: milestone,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("failed to create feature '%s': %w", item.Title, err)
	}
	helpers.PrintSuccess("Created feature #%d: %s", issue.Number, item.Title)

	ref := Ref{ID: strconv.Itoa(issue.Number), Depth: 1, Title: item.Title, Parent: epic}

	if err := createChildren(ctx, item, ref, s.Create); err != nil {
		return ref, err
	}

	return ref, nil
}

func (s *IssueService) createStory(ctx context.Context, item *models.WorkItem, feature *Ref) (Ref, error) {
	if feature.Parent == nil {
		return Ref{}, fmt.Errorf("user story '%s' has no epic", item.Title)
	}
	milestone, err := strconv.Atoi(feature.Parent.ID)
	if err != nil {
		return Ref{}, fmt.Errorf("invalid milestone number %q for '%s': %w", feature.Parent.ID, feature.Parent.Title, err)
	}

	issue, err := s.repo.CreateIssue(ctx, models.IssueRequest{
		Title:     item.Title,
		Body:      StoryBody(item),
		Labels:    []string{models.Sanitize(feature.Title)},
		Milestone: milestone,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("failed to create user story '%s': %w", item.Title, err)
	}
	helpers.PrintSuccess("Created user story #%d: %s", issue.Number, item.Title)

	if _, err := s.repo.CreateComment(ctx, issue.Number, "Related to #"+feature.ID); err != nil {
		return Ref{}, fmt.Errorf("failed to link user story #%d to feature #%s: %w", issue.Number, feature.ID, err)
	}

	ref := Ref{ID: strconv.Itoa(issue.Number), Depth: 2, Title: item.Title, Parent: feature}

	if err := createChildren(ctx, item, ref, s.Create); err != nil {
		return ref, err
	}

	return ref, nil
}

// StoryBody joins a user story's description and acceptance criteria
func StoryBody(item *models.WorkItem) string {
	criteria := models.NormalizeAcceptanceCriteria(item.AcceptanceCriteria)
	if strings.TrimSpace(criteria) == "" {
		return item.Description
	}
	return item.Description + "\n\n## Acceptance Criteria\n\n" + criteria
}

// ensureLabels creates the Epic label and one label per Feature unless they exist
func (s *IssueService) ensureLabels(ctx context.Context, epic *models.WorkItem) error {
	existing, err := s.repo.ListLabels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	names := make(map[string]bool, len(existing))
	colors := make(map[string]bool, len(existing))
	for _, label := range existing {
		names[strings.ToLower(label.Name)] = true
		colors[strings.ToLower(label.Color)] = true
	}

	desired := []string{models.Sanitize(epic.Title)}
	for i := range epic.Children {
		desired = append(desired, models.Sanitize(epic.Children[i].Title))
	}

	for _, name := range desired {
		if names[name] {
			continue
		}

		color := s.pickColor(colors)
		if _, err := s.repo.CreateLabel(ctx, models.Label{Name: name, Color: color}); err != nil {
			return fmt.Errorf("failed to create label '%s': %w", name, err)
		}
		names[name] = true
		colors[color] = true
		helpers.PrintSuccess("Created label: %s", name)
	}

	return nil
}

// pickColor draws a hex color, avoiding colors already in use where it can
func (s *IssueService) pickColor(used map[string]bool) string {
	var color string
	for i := 0; i < colorAttempts; i++ {
		color = fmt.Sprintf("%06x", s.rng.Intn(0x1000000))
		if !used[color] {
			break
		}
	}
	return color
}

// ensureMilestone returns the milestone whose sanitized title matches the Epic, creating it if absent
func (s *IssueService) ensureMilestone(ctx context.Context, epic *models.WorkItem) (*models.Milestone, error) {
	slug := models.Sanitize(epic.Title)

	milestones, err := s.repo.ListMilestones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}

	for i := range milestones {
		if models.Sanitize(milestones[i].Title) == slug {
			helpers.PrintInfo("Reusing milestone #%d: %s", milestones[i].Number, milestones[i].Title)
			return &milestones[i], nil
		}
	}

	created, err := s.repo.CreateMilestone(ctx, models.Milestone{Title: slug, Description: epic.Description})
	if err != nil {
		return nil, fmt.Errorf("failed to create milestone '%s': %w", slug, err)
	}
	helpers.PrintSuccess("Created milestone #%d: %s", created.Number, slug)

	return created, nil
}

// ListByProject lists every issue in the repository
func (s *IssueService) ListByProject(ctx context.Context, project string) (*Diagnostics, error) {
	issues, err := s.repo.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	diag := &Diagnostics{Project: project}
	for _, issue := range issues {
		kind := "Issue"
		if issue.Milestone != nil {
			kind = issue.Milestone.Title
		}
		diag.Items = append(diag.Items, Diagnostic{
			ID:    strconv.Itoa(issue.Number),
			Type:  kind,
			Title: issue.Title,
			State: issue.State,
		})
	}

	return diag, nil
}
