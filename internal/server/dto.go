package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/omule0/ai-csv-analyst/internal/ai"
	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/render"
	"github.com/omule0/ai-csv-analyst/internal/response"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Message   string `json:"message" validate:"required"`
}

type AnalyzeRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

type DatasetResponse struct {
	SessionID string                   `json:"session_id"`
	Sheet     string                   `json:"sheet,omitempty"`
	Message   string                   `json:"message"`
	Summary   *analysis.DatasetSummary `json:"summary"`
}

type ChatResponse struct {
	SessionID   string             `json:"session_id"`
	Instruction render.Instruction `json:"instruction"`
	Response    response.Response  `json:"response,omitempty"`
	Fallback    bool               `json:"fallback"`
	Usage       ai.Usage           `json:"usage"`
	Warnings    []string           `json:"warnings,omitempty"`
}

type AnalyzeResponse struct {
	SessionID string `json:"session_id"`
	Analysis  string `json:"analysis"`
}

type ValidateResponse struct {
	Valid       bool                `json:"valid"`
	Instruction *render.Instruction `json:"instruction,omitempty"`
	Response    response.Response   `json:"response,omitempty"`
	Error       *SchemaErrorBody    `json:"error,omitempty"`
}

type SchemaErrorBody struct {
	Code    response.Code `json:"code"`
	Field   string        `json:"field,omitempty"`
	Key     string        `json:"key,omitempty"`
	Message string        `json:"message"`
}

// bind decodes a JSON body into req and checks its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			msgs := make([]string, 0, len(ves))
			for _, fe := range ves {
				msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
			}
			return fiber.NewError(fiber.StatusBadRequest, "invalid request: "+strings.Join(msgs, "; "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
