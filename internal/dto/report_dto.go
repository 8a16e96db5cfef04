package dto

type GenerateReportRequest struct {
	ReportDate      string `json:"report_date"`
	AdditionalNotes string `json:"additional_notes"`
}

type RegenerateReportRequest struct {
	UserFeedback    string  `json:"user_feedback"`
	AdditionalNotes *string `json:"additional_notes,omitempty"`
}

type UpdateReportRequest struct {
	EditedContent   *string `json:"edited_content,omitempty"`
	AdditionalNotes *string `json:"additional_notes,omitempty"`
}
