package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/registry"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/validation"
)

// defaultExecutionsLimit caps the history listing when the caller gives none.
const defaultExecutionsLimit = 50

type APIHandlers struct {
	persistence   persistence.Persistence
	registry      *registry.Registry
	stepValidator *validation.StepValidator
	gate          *security.Gate
	runnerFactory protocol.RunnerFactory
	validator     *validator.Validate
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	registry *registry.Registry,
	stepValidator *validation.StepValidator,
	gate *security.Gate,
	runnerFactory protocol.RunnerFactory,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		persistence:   persistence,
		registry:      registry,
		stepValidator: stepValidator,
		gate:          gate,
		runnerFactory: runnerFactory,
		validator:     validator,
	}
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	automations, err := h.persistence.Automations(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"automations": automations,
		"total_count": len(automations),
	})
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.persistence.AutomationByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var req SaveAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definition := definitionFromRequest(&req)
	if definition.ID == "" {
		definition.ID = uuid.New().String()
	}

	definition.CreatedAt = time.Now().UTC()
	definition.UpdatedAt = definition.CreatedAt

	if problem := h.screenDefinition(c, definition); problem != nil {
		return problem
	}

	if err := h.persistence.SaveAutomation(c.Context(), definition); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(definition)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req SaveAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.AutomationByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	definition := definitionFromRequest(&req)
	definition.ID = existing.ID
	definition.CreatedAt = existing.CreatedAt
	definition.UpdatedAt = time.Now().UTC()

	if problem := h.screenDefinition(c, definition); problem != nil {
		return problem
	}

	if err := h.persistence.SaveAutomation(c.Context(), definition); err != nil {
		return internalError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	if err := h.persistence.DeleteAutomation(c.Context(), id); err != nil {
		return handleStorageError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteAutomation runs an automation synchronously on a fresh engine and
// returns the structured result. The engine never returns a transport error;
// the HTTP status reflects the result kind instead.
func (h *APIHandlers) ExecuteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req ExecuteRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	definition, err := h.persistence.AutomationByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	runner := h.runnerFactory()
	result := runner.Execute(c.Context(), definition, req.Inputs, models.RunOptions{
		UserID: req.UserID,
	})

	if !result.Success && result.ErrorKind == models.ErrorKindBusy {
		return conflict(c, result.Error)
	}

	return c.JSON(result)
}

// ValidateAutomation dry-runs the validation and security pipeline over a
// definition without executing anything.
func (h *APIHandlers) ValidateAutomation(c fiber.Ctx) error {
	var req SaveAutomationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	definition := definitionFromRequest(&req)
	response := ValidateResponse{Valid: true}

	if err := definition.CheckShape(); err != nil {
		response.Valid = false
		response.Errors = append(response.Errors, err.Error())
	}

	for _, step := range definition.Steps {
		if !h.registry.IsStepTypeSupported(step.Type) {
			response.Valid = false
			response.Errors = append(response.Errors,
				"step \""+step.ID+"\": unsupported step type \""+step.Type+"\"")

			continue
		}

		if !h.stepValidator.Supports(step.Type) {
			continue
		}

		for _, issue := range h.stepValidator.Validate(step.Type, step.Config) {
			response.Valid = false
			response.Errors = append(response.Errors,
				"step \""+step.ID+"\": "+issue.Field+": "+issue.Message)
		}
	}

	verdict := h.gate.ValidateAutomation(definition)
	if !verdict.IsValid {
		response.Valid = false
	}

	response.Errors = append(response.Errors, verdict.Errors...)
	response.Warnings = append(response.Warnings, verdict.Warnings...)

	return c.JSON(response)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	limit := defaultExecutionsLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	records, err := h.persistence.ExecutionsByAutomation(c.Context(), id, limit)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  records,
		"total_count": len(records),
	})
}

func (h *APIHandlers) GetStepTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"step_types": h.registry.StepTypes(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Stepflow API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Stepflow API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// screenDefinition rejects definitions that fail the shape check or the
// security gate at save time, so stored automations are always runnable.
func (h *APIHandlers) screenDefinition(c fiber.Ctx, definition *models.AutomationDefinition) error {
	if err := definition.CheckShape(); err != nil {
		return badRequest(c, err.Error())
	}

	verdict := h.gate.ValidateAutomation(definition)
	if !verdict.IsValid {
		return badRequest(c, "Automation rejected: "+joinMessages(verdict.Errors))
	}

	return nil
}

func definitionFromRequest(req *SaveAutomationRequest) *models.AutomationDefinition {
	return &models.AutomationDefinition{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Steps:       req.Steps,
		Variables:   req.Variables,
	}
}

func joinMessages(messages []string) string {
	return strings.Join(messages, "; ")
}
