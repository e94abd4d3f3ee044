// Package chat runs question and answer turns about an uploaded dataset.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omule0/ai-csv-analyst/internal/ai"
	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

// Session is one conversation about one dataset. Sessions are never
// mutated; every change returns a new Session with the same ID.
type Session struct {
	ID      string                   `json:"id"`
	Dataset *analysis.DatasetSummary `json:"dataset"`
	History []ai.Message             `json:"history"`
	Created time.Time                `json:"created"`
}

// NewSession starts a conversation whose history opens with the assistant
// describing the loaded dataset.
func NewSession(ds *analysis.DatasetSummary) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Dataset: ds,
		History: []ai.Message{{Role: ai.RoleAssistant, Content: OpeningMessage(ds)}},
		Created: time.Now().UTC(),
	}
}

// WithDataset swaps in a newly uploaded dataset. The history is kept and a
// new opening message announces the replacement.
func (s *Session) WithDataset(ds *analysis.DatasetSummary) *Session {
	next := s.append(ai.Message{Role: ai.RoleAssistant, Content: OpeningMessage(ds)})
	next.Dataset = ds
	return next
}

func (s *Session) append(msgs ...ai.Message) *Session {
	next := *s
	next.History = make([]ai.Message, 0, len(s.History)+len(msgs))
	next.History = append(next.History, s.History...)
	next.History = append(next.History, msgs...)
	return &next
}

// OpeningMessage states the row count, column count and headers of ds.
func OpeningMessage(ds *analysis.DatasetSummary) string {
	if ds == nil || len(ds.Columns) == 0 {
		return "I have loaded an empty dataset. Upload a file with rows to analyze it."
	}
	name := "the dataset"
	if ds.Name != "" {
		name = ds.Name
	}
	return fmt.Sprintf("I have loaded %s with %d rows and %d columns: %s. How can I help you analyze it?",
		name, ds.RowCount, len(ds.Columns), strings.Join(ds.Columns, ", "))
}
