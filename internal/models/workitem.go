package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDepthExceeded is returned when a tree nests deeper than a backend supports.
var ErrDepthExceeded = errors.New("work item tree too deep")

// Role names assigned by depth
const (
	RoleEpic      = "Epic"
	RoleFeature   = "Feature"
	RoleUserStory = "User Story"
)

// MaxRoleDepth is the deepest level with a defined role (User Story)
const MaxRoleDepth = 2

// WorkItem represents one node of the backlog tree
type WorkItem struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Type               string     `json:"type"`
	AcceptanceCriteria string     `json:"acceptanceCriteria"`
	Children           []WorkItem `json:"children"`
}

// RoleForDepth returns the semantic role of a node at depth, or "" past User Story.
func RoleForDepth(depth int) string {
	switch depth {
	case 0:
		return RoleEpic
	case 1:
		return RoleFeature
	case 2:
		return RoleUserStory
	default:
		return ""
	}
}

// Depth returns the number of levels below item (0 for a leaf).
func (w *WorkItem) Depth() int {
	deepest := 0
	for i := range w.Children {
		if d := w.Children[i].Depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Count returns the number of nodes in the subtree rooted at item.
func (w *WorkItem) Count() int {
	n := 1
	for i := range w.Children {
		n += w.Children[i].Count()
	}
	return n
}

// Walk visits every node in pre-order. Returning an error stops the walk.
func Walk(items []WorkItem, fn func(item *WorkItem, depth int) error) error {
	return walk(items, 0, fn)
}

func walk(items []WorkItem, depth int, fn func(item *WorkItem, depth int) error) error {
	for i := range items {
		if err := fn(&items[i], depth); err != nil {
			return err
		}
		if err := walk(items[i].Children, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTree checks that every node has a title and that nothing nests past maxDepth.
// A negative maxDepth disables the depth check.
func ValidateTree(items []WorkItem, maxDepth int) error {
	return validate(items, 0, maxDepth, nil)
}

func validate(items []WorkItem, depth, maxDepth int, path []string) error {
	for i := range items {
		item := &items[i]
		here := append(append([]string{}, path...), item.Title)
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("work item %d under %q has no title", i+1, strings.Join(path, " > "))
		}
		if maxDepth >= 0 && depth > maxDepth {
			return fmt.Errorf("%w: %q is at depth %d, maximum is %d", ErrDepthExceeded, strings.Join(here, " > "), depth, maxDepth)
		}
		if err := validate(item.Children, depth+1, maxDepth, here); err != nil {
			return err
		}
	}
	return nil
}

// Sanitize converts a title to the slug used for labels and milestones.
func Sanitize(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

var (
	lineBreakMarker = regexp.MustCompile(`(?i)<br\s*/?>`)
	checkboxMarker  = strings.NewReplacer("☐", "- [ ]", "&#9744;", "- [ ]")
)

// NormalizeAcceptanceCriteria turns authored markup into plain markdown.
func NormalizeAcceptanceCriteria(text string) string {
	text = lineBreakMarker.ReplaceAllString(text, "\n")
	return checkboxMarker.Replace(text)
}

// NormalizeTree returns a copy of items with User Story acceptance criteria normalized.
func NormalizeTree(items []WorkItem) []WorkItem {
	return normalize(items, 0)
}

func normalize(items []WorkItem, depth int) []WorkItem {
	if items == nil {
		return nil
	}
	out := make([]WorkItem, len(items))
	for i, item := range items {
		if depth == MaxRoleDepth {
			item.AcceptanceCriteria = NormalizeAcceptanceCriteria(item.AcceptanceCriteria)
		}
		item.Children = normalize(item.Children, depth+1)
		out[i] = item
	}
	return out
}
