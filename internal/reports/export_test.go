package reports

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewMarkdownExport(t *testing.T) {
	r := newReport(uuid.New(), day, models.StatusApproved)
	r.FinalContent = "## Done\n- shipped"

	exp := NewMarkdownExport(r, "Ada Lovelace")

	assert.Equal(t, "2024-03-15_Ada_Lovelace_daily_report.md", exp.FileName)
	assert.Equal(t, "2024-03-15", exp.ReportDate)
	assert.Equal(t, "# Daily Report - March 15, 2024\n\n**Author:** Ada Lovelace\n**Date:** 2024-03-15\n\n---\n\n## Done\n- shipped", exp.Content)
}

func TestNewMarkdownExport_Anonymous(t *testing.T) {
	r := newReport(uuid.New(), day, models.StatusDraft)
	r.GeneratedContent, r.FinalContent = "", "  "

	exp := NewMarkdownExport(r, " ")

	assert.Equal(t, "2024-03-15_daily_report.md", exp.FileName)
	assert.NotContains(t, exp.Content, "**Author:**")
	assert.Contains(t, exp.Content, "*No content*")
}

func TestNewMarkdownExport_SanitizesName(t *testing.T) {
	r := newReport(uuid.New(), day, models.StatusDraft)
	exp := NewMarkdownExport(r, "a/b:c")
	assert.Equal(t, "2024-03-15_a_b_c_daily_report.md", exp.FileName)
}
