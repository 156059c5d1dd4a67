package assertions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scimdash/internal/models"
)

func TestParse_ActualExpected(t *testing.T) {
	records := Parse("Check status\nActual : 200\nExpected : 201\nStatus is Status : Failed\n")

	require.Len(t, records, 1)
	assert.Equal(t, models.AssertionRecord{
		Name:     "Check status",
		Status:   "Failed",
		Actual:   "200",
		Expected: "201",
	}, records[0])
	assert.False(t, records[0].Passed())
}

func TestParse_MessageOnly(t *testing.T) {
	records := Parse("Schema check\nMessage : attribute userName missing\nStatus : Failed")

	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Actual)
	assert.Equal(t, "", records[0].Expected)
	assert.Equal(t, "Message : attribute userName missing", records[0].Message)
	assert.Equal(t, "Failed", records[0].Status)
	assert.False(t, records[0].Malformed)
}

func TestParse_MultipleAssertions(t *testing.T) {
	tests := "Status code\r\n" +
		"Actual : 201\r\n" +
		"Expected : 201\r\n" +
		"Status : Success\r\n" +
		"Schema\r\n" +
		"Test : schemas attribute present\r\n" +
		"Status : Success\r\n" +
		"Location header\r\n" +
		"Status : Failed\r\n"

	records := Parse(tests)
	require.Len(t, records, 3)

	assert.Equal(t, "Status code", records[0].Name)
	assert.Equal(t, "201", records[0].Actual)
	assert.Equal(t, "201", records[0].Expected)
	assert.True(t, records[0].Passed())

	assert.Equal(t, "Schema", records[1].Name)
	assert.Equal(t, "Test : schemas attribute present", records[1].Message)
	assert.True(t, records[1].Passed())

	// no content line left; the padding entry is consumed
	assert.Equal(t, "Location header", records[2].Name)
	assert.Equal(t, "", records[2].Message)
	assert.Equal(t, "Failed", records[2].Status)

	passed, failed := Summary(records)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
}

func TestParse_ActualWithoutExpected(t *testing.T) {
	records := Parse("Count\nActual : 3\nStatus : Failed\n")

	require.Len(t, records, 1)
	assert.Equal(t, "3", records[0].Actual)
	assert.Equal(t, "", records[0].Expected)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []models.AssertionRecord
	}{
		{
			name:  "empty",
			input: "",
			want:  []models.AssertionRecord{},
		},
		{
			name:  "blank lines only",
			input: "\n \n\r\n",
			want:  []models.AssertionRecord{},
		},
		{
			name:  "missing status line",
			input: "Lonely name\nActual : 1\nExpected : 2\n",
			want: []models.AssertionRecord{
				{Name: "Lonely name", Actual: "1", Expected: "2", Malformed: true},
			},
		},
		{
			name:  "more names than statuses",
			input: "First\nStatus : Success\nSecond\n",
			want: []models.AssertionRecord{
				{Name: "First", Status: "Success"},
				{Name: "Second", Malformed: true},
			},
		},
		{
			name:  "status with nothing after colon",
			input: "Check\nStatus :\n",
			want: []models.AssertionRecord{
				{Name: "Check", Malformed: true},
			},
		},
		{
			name:  "short actual line",
			input: "Check\nActual:\nStatus : Success\n",
			want: []models.AssertionRecord{
				{Name: "Check", Status: "Success"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []models.AssertionRecord
			require.NotPanics(t, func() { got = Parse(tt.input) })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusToken(t *testing.T) {
	assert.Equal(t, "Success", statusToken("Status : Success"))
	assert.Equal(t, "Failed", statusToken("Status is Status : Failed"))
	assert.Equal(t, "Skipped", statusToken("Status is Skipped"))
	assert.Equal(t, "", statusToken("Status"))
}
