package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

const protocol = `Reply with exactly one JSON object and nothing else, in one of these shapes:
{"type":"text","content":"<answer>"}
{"type":"table","content":"<answer>","data":{"headers":["<key>",...],"rows":[{"<key>":<value>,...}]}}
{"type":"chart","content":"<answer>","data":{"chartConfig":{"type":"bar|line|pie","xAxis":"<key>","yAxis":["<key>",...],"title":"<title>"},"rows":[{"<key>":<value>,...}]}}

Rules:
- Use a table or chart only when it makes the answer clearer.
- Every header, xAxis and yAxis key must appear in at least one row.
- Table rows may only use keys listed in headers.
- Values under yAxis keys must be JSON numbers or null, never strings.
- A pie chart plots the first yAxis key only.`

// systemPrompt describes the assistant's role, the response protocol and
// the dataset. The summary is embedded as JSON so the model sees exact
// statistics.
func systemPrompt(ds *analysis.DatasetSummary) (string, error) {
	summary, err := json.Marshal(ds)
	if err != nil {
		return "", fmt.Errorf("encode dataset summary: %w", err)
	}
	var b strings.Builder
	b.WriteString("You are a data analyst. You answer questions about one uploaded dataset using only the summary below. ")
	b.WriteString("If the summary does not contain enough information, say so instead of guessing.\n\n")
	b.WriteString(protocol)
	b.WriteString("\n\n[DATASET SUMMARY JSON]\n")
	b.Write(summary)
	b.WriteString("\n")
	if len(ds.Warnings) > 0 {
		b.WriteString("\nThe summary was reduced: ")
		b.WriteString(strings.Join(ds.Warnings, "; "))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// insightsPrompt asks for a markdown report over the dataset summary.
func insightsPrompt(ds *analysis.DatasetSummary) string {
	var b strings.Builder
	b.WriteString("Analyze this dataset.\n\n")
	b.WriteString(ds.Markdown())
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. Key insights about the data\n")
	b.WriteString("2. Notable patterns or trends\n")
	b.WriteString("3. Potential anomalies or outliers\n")
	b.WriteString("4. Recommendations for further analysis\n\n")
	b.WriteString("Format the response in markdown.")
	return b.String()
}
