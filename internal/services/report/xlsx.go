package report

import (
	"fmt"

	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/assertions"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	resultsSheet    = "Results"
	assertionsSheet = "Assertions"
)

// buildWorkbook writes a summary sheet, one row per result and one row per parsed assertion.
// Failed rows are highlighted.
func (s *Service) buildWorkbook(run *models.RunRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(assertionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	failStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	summary := [][]interface{}{
		{"Report", s.title},
		{"Run", run.ID},
		{"Endpoint", run.Endpoint},
		{"Authentication", string(run.Mode)},
		{"Trigger", run.Trigger},
		{"State", string(run.State)},
		{"Started", formatTime(run.StartedAt)},
		{"Finished", formatTime(run.FinishedAt)},
	}
	if run.Error != "" {
		summary = append(summary, []interface{}{"Error", run.Error})
	}
	if st := run.Statistics; st != nil {
		summary = append(summary,
			[]interface{}{"Total", st.Total},
			[]interface{}{"Success", st.Success},
			[]interface{}{"Failed", st.Failed},
			[]interface{}{"Skipped", st.Skipped},
			[]interface{}{"Time (ms)", st.Time},
		)
	}
	for i, row := range summary {
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}
	_ = f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), headerStyle)
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 60)

	if err := writeRow(f, resultsSheet, 1, []interface{}{
		"#", "Name", "Status", "Elapsed (ms)", "Method", "URI", "Response Status", "Message",
	}); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(resultsSheet, "A1", "H1", headerStyle)

	if err := writeRow(f, assertionsSheet, 1, []interface{}{
		"#", "Result", "Assertion", "Status", "Actual", "Expected", "Message",
	}); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(assertionsSheet, "A1", "G1", headerStyle)

	assertionRow := 2
	for i, r := range run.Results {
		row := i + 2
		if err := writeRow(f, resultsSheet, row, []interface{}{
			i + 1, r.Name, r.Status.String(), r.ElapsedTime,
			r.Wire.RequestType, r.Wire.RequestURI, r.Wire.ResponseStatus, r.Message,
		}); err != nil {
			return nil, err
		}
		if r.Status == models.TestStatusFailed {
			_ = f.SetCellStyle(resultsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), failStyle)
		}

		for _, a := range assertions.Parse(r.Wire.Tests) {
			status := a.Status
			if a.Malformed && status == "" {
				status = "Unparsed"
			}
			if err := writeRow(f, assertionsSheet, assertionRow, []interface{}{
				i + 1, r.Name, a.Name, status, a.Actual, a.Expected, a.Message,
			}); err != nil {
				return nil, err
			}
			if !a.Passed() {
				_ = f.SetCellStyle(assertionsSheet, fmt.Sprintf("A%d", assertionRow), fmt.Sprintf("G%d", assertionRow), failStyle)
			}
			assertionRow++
		}
	}

	_ = f.SetColWidth(resultsSheet, "B", "B", 50)
	_ = f.SetColWidth(resultsSheet, "F", "F", 40)
	_ = f.SetColWidth(resultsSheet, "H", "H", 60)
	_ = f.SetColWidth(assertionsSheet, "B", "C", 40)
	_ = f.SetColWidth(assertionsSheet, "G", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Debug().
		Str("run_id", run.ID).
		Int("results", len(run.Results)).
		Int("size", buf.Len()).
		Msg("Workbook generated")

	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		if err := f.SetCellValue(sheet, fmt.Sprintf("%c%d", 'A'+i, row), v); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
		}
	}
	return nil
}
