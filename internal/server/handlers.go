package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/chat"
	"github.com/omule0/ai-csv-analyst/internal/parser"
	"github.com/omule0/ai-csv-analyst/internal/render"
	"github.com/omule0/ai-csv-analyst/internal/response"
)

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "sessions": s.deps.Store.Len()})
}

// uploadDataset parses the multipart "file" field, builds its summary and
// starts a session, or swaps the dataset of the session named by
// "session_id". Optional fields: "sheet" (name or 1-based index),
// "full_embed" and "raw_cells".
func (s *Server) uploadDataset(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing multipart field \"file\"")
	}
	if !parser.Supported(fh.Filename) {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "unsupported file type: "+fh.Filename)
	}

	opt := parser.Options{RawCells: s.deps.RawCells || formBool(c, "raw_cells")}
	if sheet := strings.TrimSpace(c.FormValue("sheet")); sheet != "" {
		if n, err := strconv.Atoi(sheet); err == nil {
			opt.SheetIndex = n
		} else {
			opt.SheetName = sheet
		}
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	tbl, err := parser.Parse(fh.Filename, f, opt)
	if err != nil {
		if errors.Is(err, parser.ErrUnsupported) || errors.Is(err, parser.ErrEmpty) {
			return err
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	sumOpt := s.deps.Summary
	if formBool(c, "full_embed") {
		sumOpt.FullEmbed = true
	}
	ds := analysis.Build(tbl.Rows, tbl.Columns, sumOpt)
	ds.Name = tbl.Name
	for _, w := range ds.Warnings {
		s.deps.Logger.Warn(module, w, map[string]any{"file": tbl.Name})
	}

	var session *chat.Session
	if id := c.FormValue("session_id"); id != "" {
		unlock := s.deps.Store.Lock(id)
		defer unlock()
		prev, ok := s.deps.Store.Get(id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found: "+id)
		}
		session = prev.WithDataset(ds)
	} else {
		session = chat.NewSession(ds)
	}
	s.deps.Store.Save(session)
	s.deps.Logger.Info(module, "dataset loaded", map[string]any{
		"session": session.ID, "file": tbl.Name, "rows": ds.RowCount, "columns": len(ds.Columns),
	})

	return c.Status(fiber.StatusCreated).JSON(DatasetResponse{
		SessionID: session.ID,
		Sheet:     tbl.Sheet,
		Message:   session.History[len(session.History)-1].Content,
		Summary:   ds,
	})
}

func (s *Server) session(id string) (*chat.Session, error) {
	session, ok := s.deps.Store.Get(id)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found: "+id)
	}
	return session, nil
}

func (s *Server) getSession(c *fiber.Ctx) error {
	session, err := s.session(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.session(id); err != nil {
		return err
	}
	s.deps.Store.Delete(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) chatTurn(c *fiber.Ctx) error {
	var req ChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	// turns on one session run one at a time so none is lost
	unlock := s.deps.Store.Lock(req.SessionID)
	defer unlock()
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	turn, next, err := s.deps.Assistant.Ask(c.UserContext(), session, req.Message)
	if err != nil {
		return err
	}
	s.deps.Store.Save(next)
	return c.JSON(ChatResponse{
		SessionID:   next.ID,
		Instruction: turn.Instruction,
		Response:    turn.Response,
		Fallback:    turn.Fallback,
		Usage:       turn.Usage,
		Warnings:    turn.Warnings,
	})
}

func (s *Server) analyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := s.session(req.SessionID)
	if err != nil {
		return err
	}
	text, err := s.deps.Assistant.Insights(c.UserContext(), session.Dataset)
	if err != nil {
		return err
	}
	return c.JSON(AnalyzeResponse{SessionID: session.ID, Analysis: text})
}

// validateResponse checks a raw model answer and returns its render
// instruction, or the schema error with 422.
func (s *Server) validateResponse(c *fiber.Ctx) error {
	r, err := response.Parse(string(c.Body()))
	if err != nil {
		var se *response.SchemaError
		if !errors.As(err, &se) {
			return err
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidateResponse{
			Error: &SchemaErrorBody{Code: se.Code, Field: se.Field, Key: se.Key, Message: se.Error()},
		})
	}
	in := render.Dispatch(r)
	return c.JSON(ValidateResponse{Valid: true, Instruction: &in, Response: r})
}

func formBool(c *fiber.Ctx, key string) bool {
	b, err := strconv.ParseBool(c.FormValue(key))
	return err == nil && b
}
