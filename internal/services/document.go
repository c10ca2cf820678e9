package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"

	"indiana/internal/helpers"
	"indiana/internal/models"
)

// ErrDocumentIO is returned when the target document cannot be read or written
var ErrDocumentIO = errors.New("document update failed")

// Sentinel markers delimiting the regions DocumentService rewrites
const (
	TOCStart       = "<!-- toc -->"
	TOCEnd         = "<!-- endtoc -->"
	WorkItemsStart = "<!-- workitems -->"
	WorkItemsEnd   = "<!-- endworkitems -->"
)

// maxHeaderLevel is the deepest markdown heading; deeper items share it
const maxHeaderLevel = 6

var anchorStrip = regexp.MustCompile(`[^\w-]`)

// DocumentService renders the backlog as nested markdown and splices it into
// an existing file
type DocumentService struct {
	path string
	body strings.Builder
	toc  strings.Builder
}

// NewDocumentService creates a document service writing to path
func NewDocumentService(path string) *DocumentService {
	return &DocumentService{path: path}
}

// Anchor returns the link fragment used for title in the table of contents
func Anchor(title string) string {
	anchor := strings.ReplaceAll(strings.ToLower(title), " ", "-")
	return anchorStrip.ReplaceAllString(anchor, "")
}

// Create appends item and its subtree to the document, pre-order
func (s *DocumentService) Create(ctx context.Context, item *models.WorkItem, parent *Ref) (Ref, error) {
	depth := childDepth(parent)

	header := item.Title
	if role := models.RoleForDepth(depth); role != "" {
		header = role + ": " + item.Title
	}

	fmt.Fprintf(&s.body, "%s %s\n\n", strings.Repeat("#", min(depth+1, maxHeaderLevel)), header)
	if item.Description != "" {
		fmt.Fprintf(&s.body, "%s\n\n", item.Description)
	}
	if item.AcceptanceCriteria != "" {
		fmt.Fprintf(&s.body, "**Acceptance Criteria**\n\n%s\n\n", item.AcceptanceCriteria)
	}

	if depth == 1 {
		fmt.Fprintf(&s.toc, "- [%s](#%s)\n", item.Title, Anchor(item.Title))
	}

	ref := Ref{Depth: depth, Title: item.Title, Parent: parent}

	if err := createChildren(ctx, item, ref, s.Create); err != nil {
		return ref, err
	}

	return ref, nil
}

// Markdown returns the rendered work items
func (s *DocumentService) Markdown() string {
	return strings.TrimRight(s.body.String(), "\n")
}

// TOC returns the rendered table of contents
func (s *DocumentService) TOC() string {
	return strings.TrimRight(s.toc.String(), "\n")
}

// Finish replaces the toc and workitems regions of the target file. The
// rendered content is kept on failure so Finish can be called again.
func (s *DocumentService) Finish(ctx context.Context) error {
	if !helpers.FileExists(s.path) {
		return fmt.Errorf("%w: %s does not exist", ErrDocumentIO, s.path)
	}

	content, err := helpers.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentIO, s.path, err)
	}

	content, err = replaceRegion(content, TOCStart, TOCEnd, s.TOC())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentIO, s.path, err)
	}

	content, err = replaceRegion(content, WorkItemsStart, WorkItemsEnd, s.Markdown())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentIO, s.path, err)
	}

	mode := fileMode(s.path)
	if err := atomic.WriteFile(s.path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDocumentIO, s.path, err)
	}
	if err := os.Chmod(s.path, mode); err != nil {
		helpers.PrintWarning("Could not restore permissions on %s: %v", s.path, err)
	}

	helpers.PrintSuccess("Updated %s", s.path)
	return nil
}

// replaceRegion swaps everything between start and end for replacement
func replaceRegion(content, start, end, replacement string) (string, error) {
	i := strings.Index(content, start)
	if i < 0 {
		return "", fmt.Errorf("marker %s not found", start)
	}
	from := i + len(start)

	j := strings.Index(content[from:], end)
	if j < 0 {
		return "", fmt.Errorf("marker %s not found after %s", end, start)
	}
	to := from + j

	return content[:from] + "\n" + replacement + "\n" + content[to:], nil
}

// ListByProject has nothing to list for a document
func (s *DocumentService) ListByProject(ctx context.Context, project string) (*Diagnostics, error) {
	return &Diagnostics{Project: project}, nil
}

// fileMode returns the permissions of an existing document, restored after
// atomic.WriteFile swaps the file
func fileMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}
