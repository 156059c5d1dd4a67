package interfaces

import "github.com/ternarybob/scimdash/internal/models"

// ReportFormat names an export format for a run report
type ReportFormat string

const (
	ReportFormatPDF      ReportFormat = "pdf"
	ReportFormatXLSX     ReportFormat = "xlsx"
	ReportFormatYAML     ReportFormat = "yaml"
	ReportFormatJSON     ReportFormat = "json"
	ReportFormatMarkdown ReportFormat = "md"
)

// ReportService renders a run record into downloadable documents
type ReportService interface {
	// Render returns the document bytes and its content type
	Render(run *models.RunRecord, format ReportFormat) ([]byte, string, error)

	// BuildMarkdown returns the markdown report used as the PDF source
	BuildMarkdown(run *models.RunRecord) string

	// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}
