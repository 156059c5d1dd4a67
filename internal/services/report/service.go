// Package report renders stored runs into downloadable documents.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	ContentTypePDF      = "application/pdf"
	ContentTypeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeYAML     = "application/yaml"
	ContentTypeJSON     = "application/json"
	ContentTypeMarkdown = "text/markdown; charset=utf-8"
)

// Service implements interfaces.ReportService
type Service struct {
	title  string
	logger arbor.ILogger
}

var _ interfaces.ReportService = (*Service)(nil)

// NewService creates a report service. title heads every generated document.
func NewService(title string, logger arbor.ILogger) *Service {
	if title == "" {
		title = "SCIM 2.0 Compliance Report"
	}
	return &Service{title: title, logger: logger}
}

// Render returns the document for run in the requested format
func (s *Service) Render(run *models.RunRecord, format interfaces.ReportFormat) ([]byte, string, error) {
	if run == nil {
		return nil, "", fmt.Errorf("run is required")
	}

	s.logger.Debug().
		Str("run_id", run.ID).
		Str("format", string(format)).
		Msg("Rendering run report")

	switch format {
	case interfaces.ReportFormatPDF:
		data, err := s.RenderPDF(run)
		return data, ContentTypePDF, err
	case interfaces.ReportFormatXLSX:
		data, err := s.RenderXLSX(run)
		return data, ContentTypeXLSX, err
	case interfaces.ReportFormatYAML:
		data, err := s.RenderYAML(run)
		return data, ContentTypeYAML, err
	case interfaces.ReportFormatJSON:
		data, err := s.RenderJSON(run)
		return data, ContentTypeJSON, err
	case interfaces.ReportFormatMarkdown:
		return []byte(s.BuildMarkdown(run)), ContentTypeMarkdown, nil
	}

	return nil, "", fmt.Errorf("unsupported report format: %s", format)
}

// RenderPDF renders the markdown report into a PDF document
func (s *Service) RenderPDF(run *models.RunRecord) ([]byte, error) {
	return s.ConvertMarkdownToPDF(s.BuildMarkdown(run), s.title)
}

// RenderXLSX writes the run as a workbook
func (s *Service) RenderXLSX(run *models.RunRecord) ([]byte, error) {
	return s.buildWorkbook(run)
}

func (s *Service) RenderYAML(run *models.RunRecord) ([]byte, error) {
	data, err := yaml.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return data, nil
}

func (s *Service) RenderJSON(run *models.RunRecord) ([]byte, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return data, nil
}

// ParseFormat maps a query value to a report format
func ParseFormat(value string) (interfaces.ReportFormat, error) {
	switch f := interfaces.ReportFormat(value); f {
	case interfaces.ReportFormatPDF, interfaces.ReportFormatXLSX, interfaces.ReportFormatYAML,
		interfaces.ReportFormatJSON, interfaces.ReportFormatMarkdown:
		return f, nil
	case "":
		return interfaces.ReportFormatPDF, nil
	}
	return "", fmt.Errorf("unsupported report format: %s", value)
}

// FileName returns the download file name for a run report
func FileName(run *models.RunRecord, format interfaces.ReportFormat) string {
	return fmt.Sprintf("scim-compliance-%s.%s", run.ID, format)
}
