package web

import (
	"errors"
	"strconv"

	"github.com/dukex/gradflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unknownAction(c fiber.Ctx, action string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("unknown_action").
		WithDetail("unsupported action " + strconv.Quote(action))

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthenticated(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthenticated").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// envelopeFromError maps an engine error to the response envelope. Missing records
// and steps get ret 1, every other failure ret 2 with a message.
func envelopeFromError(err error) fiber.Map {
	message := err.Error()

	var wfErr *workflow.Error
	if errors.As(err, &wfErr) && wfErr.Message != "" {
		message = wfErr.Message
	}

	if workflow.IsNotFound(err) {
		return fiber.Map{"ret": RetNotFound, "msg": message}
	}

	envelope := fiber.Map{"ret": RetError, "msg": message}

	if workflow.IsValidation(err) && wfErr != nil && len(wfErr.Details) > 0 {
		envelope["fields"] = wfErr.Details
	}

	return envelope
}
