// Package assertions decodes the assertion text the compliance test suite embeds in each
// result's wire log.
//
// The server emits one assertion as a name line, optional "Actual : x" and "Expected : y"
// lines, an optional free-form "Message"/"Test" line and a status line:
//
//	Check status
//	Actual : 200
//	Expected : 201
//	Status is Status : Failed
//
// The format has no delimiters, so lines are matched to assertions by position. Parse keeps
// that positional behaviour for compatibility with existing servers.
package assertions

import (
	"strings"

	"github.com/ternarybob/scimdash/internal/models"
)

// contentPadding guarantees the cursor and cursor+1 reads stay in range for the last assertion
const contentPadding = 2

type lines struct {
	names    []string
	contents []string
	statuses []string
}

// classify sorts each line into exactly one bucket. Priority: name, content, status.
func classify(tests string) lines {
	var l lines
	for _, raw := range strings.Split(tests, "\n") {
		line := strings.TrimRight(raw, "\r")
		switch {
		case !strings.Contains(line, ":"):
			if strings.TrimSpace(line) != "" {
				l.names = append(l.names, line)
			}
		case !strings.Contains(line, "Status"):
			l.contents = append(l.contents, line)
		default:
			l.statuses = append(l.statuses, line)
		}
	}
	for i := 0; i < contentPadding; i++ {
		l.contents = append(l.contents, "")
	}
	return l
}

// Parse returns one record per name line, in order. It never panics: a name without a
// matching status line yields an empty status and Malformed=true.
func Parse(tests string) []models.AssertionRecord {
	l := classify(tests)
	records := make([]models.AssertionRecord, 0, len(l.names))

	j := 0
	for i, name := range l.names {
		rec := models.AssertionRecord{Name: name}

		if i < len(l.statuses) {
			rec.Status = statusToken(l.statuses[i])
		}
		if rec.Status == "" {
			rec.Malformed = true
		}

		current := contentAt(l.contents, j)
		if strings.Contains(current, "Actual") {
			rec.Actual = thirdToken(current)
			if next := contentAt(l.contents, j+1); strings.Contains(next, "Expected") {
				rec.Expected = thirdToken(next)
			}
			j += 2
		} else {
			if strings.Contains(current, "Test") || strings.Contains(current, "Message") {
				rec.Message = current
			}
			j++
		}

		records = append(records, rec)
	}

	return records
}

// Summary counts passed and failed records. Malformed records count as failed.
func Summary(records []models.AssertionRecord) (passed, failed int) {
	for _, r := range records {
		if r.Passed() && !r.Malformed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

func contentAt(contents []string, i int) string {
	if i < 0 || i >= len(contents) {
		return ""
	}
	return contents[i]
}

// statusToken returns the first word after the last colon. "Status : Failed" and
// "Status is Status : Failed" both give "Failed". Lines without a colon fall back to the
// third whitespace-separated token.
func statusToken(line string) string {
	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		if fields := strings.Fields(line[idx+1:]); len(fields) > 0 {
			return fields[0]
		}
		return ""
	}
	return thirdToken(line)
}

func thirdToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ""
	}
	return fields[2]
}
