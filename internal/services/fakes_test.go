package services

import (
	"context"
	"errors"
	"fmt"

	"indiana/internal/models"
)

var errBoom = errors.New("boom")

type fakeWorkItemRepo struct {
	nextID  int
	created []createdWorkItem
	failOn  string
	items   []models.WorkItemResponse
}

type createdWorkItem struct {
	id    int
	typ   string
	patch []models.PatchOperation
}

func (f *fakeWorkItemRepo) CreateWorkItem(_ context.Context, workItemType string, patch []models.PatchOperation) (*models.WorkItemResponse, error) {
	if title, _ := patch[0].Value.(string); title == f.failOn {
		return nil, errBoom
	}
	f.nextID++
	f.created = append(f.created, createdWorkItem{id: f.nextID, typ: workItemType, patch: patch})
	return &models.WorkItemResponse{ID: f.nextID}, nil
}

func (f *fakeWorkItemRepo) WorkItemURL(id string) string {
	return "https://example.test/wit/" + id
}

func (f *fakeWorkItemRepo) QueryWorkItemIDs(context.Context) ([]int, error) {
	ids := make([]int, 0, len(f.items))
	for _, item := range f.items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

func (f *fakeWorkItemRepo) GetWorkItems(_ context.Context, ids []int) ([]models.WorkItemResponse, error) {
	return f.items, nil
}

// fakeIssueRepo keeps labels, milestones and issues in memory and records every write
type fakeIssueRepo struct {
	labels     []models.Label
	milestones []models.Milestone
	issues     []models.IssueRequest
	comments   map[int][]string
	calls      []string
	failIssue  string
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{comments: map[int][]string{}}
}

func (f *fakeIssueRepo) ListLabels(context.Context) ([]models.Label, error) {
	f.calls = append(f.calls, "ListLabels")
	return append([]models.Label(nil), f.labels...), nil
}

func (f *fakeIssueRepo) CreateLabel(_ context.Context, label models.Label) (*models.Label, error) {
	f.calls = append(f.calls, "CreateLabel "+label.Name)
	f.labels = append(f.labels, label)
	return &label, nil
}

func (f *fakeIssueRepo) ListMilestones(context.Context) ([]models.Milestone, error) {
	f.calls = append(f.calls, "ListMilestones")
	return append([]models.Milestone(nil), f.milestones...), nil
}

func (f *fakeIssueRepo) CreateMilestone(_ context.Context, milestone models.Milestone) (*models.Milestone, error) {
	f.calls = append(f.calls, "CreateMilestone "+milestone.Title)
	milestone.Number = len(f.milestones) + 1
	f.milestones = append(f.milestones, milestone)
	return &milestone, nil
}

func (f *fakeIssueRepo) CreateIssue(_ context.Context, issue models.IssueRequest) (*models.Issue, error) {
	if issue.Title == f.failIssue {
		return nil, errBoom
	}
	f.issues = append(f.issues, issue)
	number := len(f.issues) + 100
	f.calls = append(f.calls, fmt.Sprintf("CreateIssue #%d %s", number, issue.Title))
	return &models.Issue{Number: number, Title: issue.Title}, nil
}

func (f *fakeIssueRepo) CreateComment(_ context.Context, number int, body string) (*models.Comment, error) {
	f.calls = append(f.calls, fmt.Sprintf("CreateComment #%d", number))
	f.comments[number] = append(f.comments[number], body)
	return &models.Comment{Body: body}, nil
}

func (f *fakeIssueRepo) ListIssues(context.Context) ([]models.Issue, error) {
	issues := make([]models.Issue, 0, len(f.issues))
	for i, req := range f.issues {
		issues = append(issues, models.Issue{Number: i + 101, Title: req.Title, State: "open"})
	}
	return issues, nil
}

func backlog() []models.WorkItem {
	return []models.WorkItem{{
		Title:       "Checkout Flow",
		Description: "Let customers pay",
		Type:        "Epic",
		Children: []models.WorkItem{
			{
				Title:       "Cart",
				Description: "Cart management",
				Type:        "Feature",
				Children: []models.WorkItem{
					{Title: "Add item", Description: "As a shopper I add items", Type: "User Story", AcceptanceCriteria: "☐ item listed<br>☐ total updated"},
					{Title: "Remove item", Description: "As a shopper I remove items", Type: "User Story"},
				},
			},
			{Title: "Payment", Description: "Card payments", Type: "Feature"},
		},
	}}
}
