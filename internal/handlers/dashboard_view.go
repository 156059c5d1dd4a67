package handlers

import (
	"strings"

	"github.com/ternarybob/scimdash/internal/models"
	"github.com/ternarybob/scimdash/internal/services/assertions"
)

// ViewOptions carries the static page settings
type ViewOptions struct {
	Title         string
	BasePath      string
	Version       string
	ReportFormats []string
	ClientDebug   bool
}

// GroupView is a test group with its selected child count
type GroupView struct {
	models.TestGroup
	Selected int
}

// ResultView is one result with its decoded assertions. ShowRaw is set when the assertion
// text could not be decoded cleanly and the raw text is shown instead.
type ResultView struct {
	Index       int
	Name        string
	Status      string
	StatusClass string
	ElapsedTime int64
	Message     string
	Wire        models.WireLog
	Assertions  []models.AssertionRecord
	ShowRaw     bool
}

// DashboardView is everything the dashboard template renders
type DashboardView struct {
	Title         string
	BasePath      string
	Version       string
	ClientDebug   bool
	ReportFormats []string

	Groups       []GroupView
	AllSelected  bool
	CheckedTests int
	TotalTests   int

	Auth      models.AuthState
	BasicMode bool

	Run          models.RunSnapshot
	CanStart     bool
	ShowProgress bool
	Progress     int
	Statistics   *models.RunStatistics
	Chart        *models.SummaryChart
	Results      []ResultView
	LastRunID    string
}

// BuildDashboardView derives the view from the current state. It reads nothing else.
func BuildDashboardView(tree models.SelectionTree, auth models.AuthState, run models.RunSnapshot, opts ViewOptions) DashboardView {
	v := DashboardView{
		Title:         opts.Title,
		BasePath:      opts.BasePath,
		Version:       opts.Version,
		ClientDebug:   opts.ClientDebug,
		ReportFormats: opts.ReportFormats,
		AllSelected:   tree.AllSelected(),
		CheckedTests:  tree.CheckedCount(),
		TotalTests:    tree.TotalCount(),
		Auth:          auth,
		BasicMode:     auth.Draft.Mode != models.AuthModeBearer,
		Run:           run,
		CanStart:      run.CanStart(),
		Statistics:    run.Statistics,
		Chart:         run.Chart,
		LastRunID:     run.LastRunID,
	}

	for _, g := range tree.Groups() {
		v.Groups = append(v.Groups, GroupView{TestGroup: g, Selected: g.CheckedCount()})
	}

	if run.Progress != nil {
		v.ShowProgress = true
		v.Progress = *run.Progress
	}

	for i, r := range run.Results {
		v.Results = append(v.Results, newResultView(i, r))
	}

	return v
}

func newResultView(i int, r models.TestResult) ResultView {
	status := r.Status.String()
	rv := ResultView{
		Index:       i,
		Name:        r.Name,
		Status:      status,
		StatusClass: "status-" + strings.ToLower(status),
		ElapsedTime: r.ElapsedTime,
		Message:     r.Message,
		Wire:        r.Wire,
		Assertions:  assertions.Parse(r.Wire.Tests),
	}

	for _, a := range rv.Assertions {
		if a.Malformed {
			rv.ShowRaw = true
			break
		}
	}
	if len(rv.Assertions) == 0 && strings.TrimSpace(r.Wire.Tests) != "" {
		rv.ShowRaw = true
	}
	return rv
}
