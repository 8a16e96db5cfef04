package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/dto"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/reports"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	orchestrator *reports.Orchestrator
	service      *reports.Service
}

func NewReportHandler(orchestrator *reports.Orchestrator, service *reports.Service) *ReportHandler {
	return &ReportHandler{orchestrator: orchestrator, service: service}
}

var failureStatus = map[reports.FailureKind]int{
	reports.FailureValidation:  fiber.StatusBadRequest,
	reports.FailureDuplicate:   fiber.StatusConflict,
	reports.FailureNotFound:    fiber.StatusNotFound,
	reports.FailureNotEditable: fiber.StatusConflict,
	reports.FailureConflict:    fiber.StatusConflict,
	reports.FailureGeneration:  fiber.StatusBadGateway,
	reports.FailureInternal:    fiber.StatusInternalServerError,
}

// result writes a GenerationResult envelope with a status matching its failure kind.
func (h *ReportHandler) result(c *fiber.Ctx, res *reports.GenerationResult, okStatus int) error {
	if res.Success {
		return c.Status(okStatus).JSON(res)
	}
	if res.Unexpected() {
		capture(c, res.Err)
	}
	code, ok := failureStatus[res.Kind]
	if !ok {
		code = fiber.StatusInternalServerError
	}
	return c.Status(code).JSON(res)
}

func (h *ReportHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reports.ErrReportNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Report not found")
	case errors.Is(err, reports.ErrReportNotEditable), errors.Is(err, reports.ErrReportNotApproved):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, reports.ErrReopenDisabled):
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	}
	return internalError(c, "Report operation failed", err)
}

func (h *ReportHandler) Generate(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req dto.GenerateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	var date time.Time
	if strings.TrimSpace(req.ReportDate) != "" {
		if date, err = models.ParseDate(req.ReportDate); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "report_date must be YYYY-MM-DD")
		}
	}

	res := h.orchestrator.Generate(c.UserContext(), reports.GenerateRequest{
		UserID:          uid,
		ReportDate:      date,
		AdditionalNotes: req.AdditionalNotes,
	})
	return h.result(c, res, fiber.StatusCreated)
}

func (h *ReportHandler) Regenerate(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	var req dto.RegenerateReportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	res := h.orchestrator.Regenerate(c.UserContext(), reports.RegenerateRequest{
		ReportID:        id,
		UserID:          uid,
		UserFeedback:    req.UserFeedback,
		AdditionalNotes: req.AdditionalNotes,
	})
	return h.result(c, res, fiber.StatusOK)
}

// List accepts optional from, to (YYYY-MM-DD) and status query parameters.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var f reports.Filter
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := models.ParseDate(raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
		}
		*dst = &t
	}
	if raw := c.Query("status"); raw != "" {
		st, ok := models.ParseReportStatus(raw)
		if !ok {
			return errorJSON(c, fiber.StatusBadRequest, "status must be DRAFT, EDITED or APPROVED")
		}
		f.Status = st
	}

	list, err := h.service.List(c.UserContext(), uid, f)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *ReportHandler) GetByDate(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	date, err := models.ParseDate(c.Params("date"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	r, err := h.service.GetByDate(c.UserContext(), uid, date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(r)
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	r, err := h.service.GetByID(c.UserContext(), uid, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(r)
}

func (h *ReportHandler) Update(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	var req dto.UpdateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	r, err := h.service.Update(c.UserContext(), uid, id, reports.UpdateInput{
		EditedContent:   req.EditedContent,
		AdditionalNotes: req.AdditionalNotes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(r)
}

func (h *ReportHandler) Approve(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	r, err := h.service.Approve(c.UserContext(), uid, id)
	if err != nil {
		return h.fail(c, err)
	}
	slog.Info("report approved", "action", "report.approve", "user_id", uid.String(), "report_id", id.String())
	return c.JSON(r)
}

func (h *ReportHandler) Reopen(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	r, err := h.service.Reopen(c.UserContext(), uid, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(r)
}

func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), uid, id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Export downloads the report as Markdown. ?format=json returns the export
// envelope instead; ?user_name overrides the author taken from the token.
func (h *ReportHandler) Export(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "report")
	if err != nil {
		return err
	}

	name := c.Query("user_name", middleware.CurrentUserName(c))
	exp, err := h.service.Export(c.UserContext(), uid, id, name)
	if err != nil {
		return h.fail(c, err)
	}

	if c.Query("format") == "json" {
		return c.JSON(exp)
	}
	c.Attachment(exp.FileName)
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(exp.Content)
}
