package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "Applications",
		Headers: []string{"ID", "Student", "Status"},
		Rows: [][]string{
			{"APP-2026-00001", "Maria Garcia", "Pending"},
			{"APP-2026-00002", "Juan, Reyes", "Approved"},
		},
	}
}

func TestCSVRendersHeadersAndRows(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Student,Status", lines[0])
	assert.Contains(t, lines[2], `"Juan, Reyes"`)
}

func TestCSVRejectsRaggedRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"only-one-cell"})
	_, err := NewCSVExporter().Render(table)
	assert.Error(t, err)
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{Rows: [][]string{{"a"}}})
	assert.Error(t, err)
}

func TestPDFRendersDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
	assert.Greater(t, len(out), 500)
}

func TestPDFRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Table{})
	assert.Error(t, err)
}
