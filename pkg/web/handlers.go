// Package web provides the HTTP boundary of the graduate design workflow.
package web

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/dukex/gradflow/pkg/rules"
	"github.com/dukex/gradflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	engine    *workflow.Engine
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(engine *workflow.Engine, validator *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		engine:    engine,
		validator: validator,
		logger:    logger,
	}
}

// GraduateDesign dispatches on the action parameter, read from the query string
// of a GET or the JSON body of a POST.
func (h *APIHandlers) GraduateDesign(c fiber.Ctx) error {
	p, err := readParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	switch action := p.String("action"); action {
	case ActionListByPage:
		return h.listByPage(c, p)
	case ActionGetOne:
		return h.getOne(c, p)
	case ActionStepAction:
		return h.stepAction(c, p)
	case ActionGetStepActionData:
		return h.getStepActionData(c, p)
	default:
		return unknownAction(c, action)
	}
}

func (h *APIHandlers) listByPage(c fiber.Ctx, p *params) error {
	pageNum, err := p.Int("pagenum", 1)
	if err != nil {
		return badRequest(c, err.Error())
	}

	pageSize, err := p.Int("pagesize", workflow.DefaultPageSize)
	if err != nil {
		return badRequest(c, err.Error())
	}

	req := ListByPageRequest{
		PageNum:  int(min(max(pageNum, -1), math.MaxInt32)),
		PageSize: int(min(max(pageSize, -1), workflow.MaxPageSize)),
		Keywords: p.String("keywords"),
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engine.ListByPage(c.Context(), workflow.ListRequest{
		PageNum:  req.PageNum,
		PageSize: req.PageSize,
		Keywords: req.Keywords,
	}, CurrentUser(c))
	if err != nil {
		return h.envelope(c, err)
	}

	return c.JSON(fiber.Map{
		"ret":      RetOK,
		"items":    result.Items,
		"total":    result.Total,
		"keywords": result.Keywords,
	})
}

func (h *APIHandlers) getOne(c fiber.Ctx, p *params) error {
	var req GetOneRequest

	if _, sent := p.raw("wf_id"); sent {
		id, err := p.Int("wf_id", 0)
		if err != nil {
			return badRequest(c, err.Error())
		}

		req.WfID = &id
	}

	req.WithWhatCanIDo = p.Bool("withwhatcanido")

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	detail, err := h.engine.GetOne(c.Context(), *req.WfID, req.WithWhatCanIDo, CurrentUser(c))
	if err != nil {
		return h.envelope(c, err)
	}

	response := fiber.Map{
		"ret": RetOK,
		"rec": TransformRecordDetail(detail),
	}

	if req.WithWhatCanIDo {
		actions := detail.Actions
		if actions == nil {
			actions = make([]rules.Action, 0)
		}

		response["whaticando"] = actions
	}

	return c.JSON(response)
}

func (h *APIHandlers) stepAction(c fiber.Ctx, p *params) error {
	wfID, err := p.Int("wf_id", -1)
	if err != nil {
		return badRequest(c, err.Error())
	}

	submission, err := p.Submission("submitdata")
	if err != nil {
		return badRequest(c, err.Error())
	}

	req := StepActionRequest{
		Key:        p.String("key"),
		WfID:       wfID,
		SubmitData: submission,
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.engine.ExecuteAction(c.Context(), workflow.ExecuteRequest{
		Key:        req.Key,
		RecordID:   req.WfID,
		Submission: req.SubmitData,
	}, CurrentUser(c))
	if err != nil {
		return h.envelope(c, err)
	}

	return c.JSON(fiber.Map{
		"ret":   RetOK,
		"wf_id": result.RecordID,
	})
}

func (h *APIHandlers) getStepActionData(c fiber.Ctx, p *params) error {
	stepID, err := p.Int("step_id", 0)
	if err != nil {
		return badRequest(c, err.Error())
	}

	req := GetStepActionDataRequest{StepID: stepID}
	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	data, err := h.engine.StepActionData(c.Context(), req.StepID)
	if err != nil {
		return h.envelope(c, err)
	}

	return c.JSON(fiber.Map{
		"ret":  RetOK,
		"data": data,
	})
}

// envelope reports an engine error inside a 200 response. Internal faults are
// logged with full detail here; rejections were already logged by the engine.
func (h *APIHandlers) envelope(c fiber.Ctx, err error) error {
	if !workflow.IsRejection(err) {
		h.logger.ErrorContext(c.Context(), "Request failed", "path", c.Path(), "error", err)
	}

	return c.JSON(envelopeFromError(err))
}

// Rules returns the loaded rule table so clients can render action forms.
func (h *APIHandlers) Rules(c fiber.Ctx) error {
	return c.JSON(h.engine.Table().Definition())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.engine.HealthCheck(c.Context())

	status := "unhealthy"
	message := "gradflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "gradflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
