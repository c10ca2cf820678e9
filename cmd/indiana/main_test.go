package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeItems(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadWorkItems_Normalizes(t *testing.T) {
	path := writeItems(t, `[{"title":"E1","type":"Epic","children":[{"title":"F1","type":"Feature","children":[
		{"title":"S1","type":"User Story","acceptanceCriteria":"☐ one<br>☐ two"}]}]}]`)

	items, err := loadWorkItems(path)

	require.NoError(t, err)
	assert.Equal(t, "- [ ] one\n- [ ] two", items[0].Children[0].Children[0].AcceptanceCriteria)
}

func TestLoadWorkItems_Errors(t *testing.T) {
	_, err := loadWorkItems(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to load work items")

	_, err = loadWorkItems(writeItems(t, `{"title":"not an array"}`))
	assert.ErrorContains(t, err, "failed to load work items")

	_, err = loadWorkItems(writeItems(t, `[{"title":""}]`))
	assert.ErrorContains(t, err, "invalid work items")
}
