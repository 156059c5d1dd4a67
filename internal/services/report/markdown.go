package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/assertions"
)

const reportTimeFormat = "2006-01-02 15:04:05 MST"

// BuildMarkdown renders the run as a markdown document: a summary table, then one section per
// result with its request line and a table of parsed assertions.
func (s *Service) BuildMarkdown(run *models.RunRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.title)

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run | %s |\n", cell(run.ID))
	fmt.Fprintf(&b, "| Endpoint | %s |\n", cell(run.Endpoint))
	fmt.Fprintf(&b, "| Authentication | %s |\n", cell(string(run.Mode)))
	fmt.Fprintf(&b, "| Trigger | %s |\n", cell(run.Trigger))
	fmt.Fprintf(&b, "| State | %s |\n", cell(string(run.State)))
	fmt.Fprintf(&b, "| Started | %s |\n", formatTime(run.StartedAt))
	fmt.Fprintf(&b, "| Finished | %s |\n", formatTime(run.FinishedAt))
	b.WriteString("\n")

	if run.Error != "" {
		fmt.Fprintf(&b, "**Error:** %s\n\n", inline(run.Error))
	}

	if len(run.Operations) > 0 {
		b.WriteString("## Operations\n\n")
		for _, op := range run.Operations {
			fmt.Fprintf(&b, "- %s\n", op)
		}
		b.WriteString("\n")
	}

	if run.Statistics != nil {
		st := run.Statistics
		chart := models.NewSummaryChart(*st)

		b.WriteString("## Summary\n\n")
		b.WriteString("| Total | Success | Failed | Skipped | Time (ms) |\n|---|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n", st.Total, st.Success, st.Failed, st.Skipped, st.Time)

		b.WriteString("| Outcome | Count | Percent |\n|---|---|---|\n")
		for i, label := range chart.Labels {
			fmt.Fprintf(&b, "| %s | %d | %.2f%% |\n", label, chart.Values[i], chart.Percentages[i])
		}
		b.WriteString("\n")
	}

	if len(run.Results) > 0 {
		b.WriteString("## Results\n\n")
		for i, r := range run.Results {
			fmt.Fprintf(&b, "### %d. %s (%s, %d ms)\n\n", i+1, inline(r.Name), r.Status, r.ElapsedTime)

			if r.Wire.RequestType != "" || r.Wire.RequestURI != "" {
				fmt.Fprintf(&b, "`%s %s` returned **%s**\n\n", r.Wire.RequestType, r.Wire.RequestURI, inline(r.Wire.ResponseStatus))
			}
			if r.Message != "" {
				fmt.Fprintf(&b, "*%s*\n\n", inline(r.Message))
			}

			records := assertions.Parse(r.Wire.Tests)
			if len(records) == 0 {
				continue
			}
			b.WriteString("| Assertion | Status | Actual | Expected | Message |\n|---|---|---|---|---|\n")
			for _, a := range records {
				status := a.Status
				if a.Malformed && status == "" {
					status = "Unparsed"
				}
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
					cell(a.Name), cell(status), cell(a.Actual), cell(a.Expected), cell(a.Message))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(reportTimeFormat)
}

// cell escapes text for a markdown table cell
func cell(s string) string {
	s = inline(s)
	s = strings.ReplaceAll(s, "|", "\\|")
	if s == "" {
		return "-"
	}
	return s
}

func inline(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
