package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omule0/ai-csv-analyst/internal/ai"
	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/logger"
	"github.com/omule0/ai-csv-analyst/internal/render"
	"github.com/omule0/ai-csv-analyst/internal/response"
	"github.com/omule0/ai-csv-analyst/internal/utils"
)

const module = "chat"

var (
	ErrNoDataset     = errors.New("no dataset loaded")
	ErrEmptyQuestion = errors.New("question is empty")
)

// CollaboratorError wraps a failure of the text-generation backend.
type CollaboratorError struct {
	Err error
}

func (e *CollaboratorError) Error() string { return "text generation failed: " + e.Err.Error() }
func (e *CollaboratorError) Unwrap() error { return e.Err }

// Assistant answers questions about a session's dataset.
type Assistant struct {
	Runtime     ai.Runtime
	Model       string
	MaxTokens   int
	Temperature float64
	// Stream uses the runtime's streaming API when it has one. The answer
	// is still validated only once it is complete.
	Stream  bool
	OnDelta func(string)
	Logger  logger.Logger
}

// Turn is the outcome of one question.
type Turn struct {
	Question    string             `json:"question"`
	Raw         string             `json:"raw"`
	Response    response.Response  `json:"response,omitempty"`
	Instruction render.Instruction `json:"instruction"`
	// Fallback is set when the answer failed validation; Err holds the
	// *response.SchemaError.
	Fallback bool     `json:"fallback"`
	Err      error    `json:"-"`
	Usage    ai.Usage `json:"usage"`
	Warnings []string `json:"warnings,omitempty"`
}

func (a *Assistant) log() logger.Logger {
	if a.Logger == nil {
		return logger.Nop()
	}
	return a.Logger
}

// Ask sends question with the session history and dataset summary. An
// answer that fails validation is not an error: the turn carries the
// fallback instruction instead. Backend failures are *CollaboratorError and
// leave the session unchanged.
func (a *Assistant) Ask(ctx context.Context, s *Session, question string) (*Turn, *Session, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, s, ErrEmptyQuestion
	}
	if s == nil || s.Dataset == nil {
		return nil, s, ErrNoDataset
	}
	system, err := systemPrompt(s.Dataset)
	if err != nil {
		return nil, s, err
	}
	msgs := make([]ai.Message, 0, len(s.History)+2)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: system})
	msgs = append(msgs, s.History...)
	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: question})

	turn := &Turn{Question: question}
	turn.Warnings = a.checkContext(msgs)

	raw, usage, err := a.generate(ctx, ai.GenerateRequest{
		Model:       a.Model,
		Messages:    msgs,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
		JSONMode:    true,
	})
	if err != nil {
		a.log().Error(module, "generation failed", map[string]any{"session": s.ID, "error": err})
		return nil, s, &CollaboratorError{Err: err}
	}
	turn.Raw = raw
	turn.Usage = usage

	r, err := response.Parse(raw)
	if err != nil {
		a.log().Warn(module, "response rejected", map[string]any{"session": s.ID, "error": err})
		turn.Fallback = true
		turn.Err = err
		turn.Instruction = render.Fallback(err)
	} else {
		turn.Response = r
		turn.Instruction = render.Dispatch(r)
	}
	a.log().Debug(module, "turn complete", map[string]any{
		"session":  s.ID,
		"kind":     turn.Instruction.Mode,
		"fallback": turn.Fallback,
		"tokens":   usage.TotalTokens,
	})

	next := s.append(
		ai.Message{Role: ai.RoleUser, Content: question},
		ai.Message{Role: ai.RoleAssistant, Content: raw},
	)
	return turn, next, nil
}

// Insights asks for a markdown report of key insights, patterns, anomalies
// and recommendations.
func (a *Assistant) Insights(ctx context.Context, ds *analysis.DatasetSummary) (string, error) {
	if ds == nil {
		return "", ErrNoDataset
	}
	msgs := []ai.Message{{Role: ai.RoleUser, Content: insightsPrompt(ds)}}
	for _, w := range a.checkContext(msgs) {
		a.log().Warn(module, w, nil)
	}
	text, _, err := a.generate(ctx, ai.GenerateRequest{
		Model:       a.Model,
		Messages:    msgs,
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
	})
	if err != nil {
		return "", &CollaboratorError{Err: err}
	}
	return strings.TrimSpace(text), nil
}

func (a *Assistant) generate(ctx context.Context, req ai.GenerateRequest) (string, ai.Usage, error) {
	if sr, ok := a.Runtime.(ai.StreamRuntime); ok && a.Stream {
		var b strings.Builder
		err := sr.GenerateStream(ctx, req, func(delta string) {
			b.WriteString(delta)
			if a.OnDelta != nil {
				a.OnDelta(delta)
			}
		})
		if err != nil {
			return "", ai.Usage{}, err
		}
		if strings.TrimSpace(b.String()) == "" {
			return "", ai.Usage{}, &ai.EmptyResponseError{Provider: "streaming runtime"}
		}
		return b.String(), ai.Usage{}, nil
	}
	if a.Runtime == nil {
		return "", ai.Usage{}, errors.New("no text-generation runtime configured")
	}
	resp, err := a.Runtime.Generate(ctx, req)
	if err != nil {
		return "", ai.Usage{}, err
	}
	return resp.Text(), resp.Usage, nil
}

// checkContext warns when the estimated prompt plus the completion budget
// exceeds the model's context window.
func (a *Assistant) checkContext(msgs []ai.Message) []string {
	tokens := 0
	for _, m := range msgs {
		tokens += utils.CountTokens(m.Content)
	}
	over, ok := ai.ContextOverflow(a.Model, tokens, a.MaxTokens)
	if !ok {
		return nil
	}
	w := fmt.Sprintf("prompt (~%d tokens) plus max_tokens %d exceeds the %s context window by ~%d tokens", tokens, a.MaxTokens, a.Model, over)
	a.log().Warn(module, "context window exceeded", map[string]any{"model": a.Model, "prompt_tokens": tokens, "over": over})
	return []string{w}
}
