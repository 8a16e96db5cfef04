package reports

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

type MarkdownExport struct {
	FileName   string `json:"file_name"`
	ReportDate string `json:"report_date"`
	UserName   string `json:"user_name,omitempty"`
	Content    string `json:"content"`
}

func NewMarkdownExport(r *models.DailyReport, userName string) *MarkdownExport {
	userName = strings.TrimSpace(userName)
	date := r.DateString()

	var b strings.Builder
	b.WriteString("# Daily Report - ")
	b.WriteString(r.Date().Format("January 2, 2006"))
	b.WriteString("\n\n")
	if userName != "" {
		b.WriteString("**Author:** ")
		b.WriteString(userName)
		b.WriteString("\n")
	}
	b.WriteString("**Date:** ")
	b.WriteString(date)
	b.WriteString("\n\n---\n\n")

	if content := r.DisplayContent(); content != "" {
		b.WriteString(content)
	} else {
		b.WriteString("*No content*")
	}

	fileName := date + "_daily_report.md"
	if userName != "" {
		fileName = date + "_" + sanitizeFileName(userName) + "_daily_report.md"
	}

	return &MarkdownExport{
		FileName:   fileName,
		ReportDate: date,
		UserName:   userName,
		Content:    b.String(),
	}
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
