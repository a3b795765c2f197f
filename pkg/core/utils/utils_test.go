package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartParse(t *testing.T) {
	type row struct {
		Date      string  `json:"date"`
		NetIncome float64 `json:"netIncome"`
	}

	tests := []struct {
		name  string
		input string
	}{
		{"valid json", `[{"date":"2023-03-31","netIncome":10}]`},
		{"trailing comma", `[{"date":"2023-03-31","netIncome":10,},]`},
		{"truncated", `[{"date":"2023-03-31","netIncome":10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []row
			_, err := SmartParse(tt.input, &rows)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "2023-03-31", rows[0].Date)
			assert.Equal(t, 10.0, rows[0].NetIncome)
		})
	}

	t.Run("object into slice fails", func(t *testing.T) {
		var rows []row
		_, err := SmartParse(`{"Error Message": "Invalid API KEY."}`, &rows)
		assert.Error(t, err)
	})
}

func TestParseHJSONToStruct(t *testing.T) {
	var m map[string]float64
	require.NoError(t, ParseHJSONToStruct("# comment\nrevenue: 4\nnetIncome: 6", &m))
	assert.Equal(t, map[string]float64{"revenue": 4, "netIncome": 6}, m)
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("```markdown\n# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n```")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.True(t, strings.Contains(html, "<table>"), html)
	assert.Contains(t, html, "<td>2</td>")
}
