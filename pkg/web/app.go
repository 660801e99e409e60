package web

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/protocol"
	"github.com/dukex/stepflow/pkg/registry"
	"github.com/dukex/stepflow/pkg/security"
	"github.com/dukex/stepflow/pkg/validation"
)

// API bundles the dependencies of the HTTP surface and builds the fiber app.
type API struct {
	persistence   persistence.Persistence
	registry      *registry.Registry
	stepValidator *validation.StepValidator
	gate          *security.Gate
	runnerFactory protocol.RunnerFactory
	validate      *validator.Validate
}

func NewAPI(
	persistence persistence.Persistence,
	registry *registry.Registry,
	stepValidator *validation.StepValidator,
	gate *security.Gate,
	runnerFactory protocol.RunnerFactory,
) *API {
	return &API{
		persistence:   persistence,
		registry:      registry,
		stepValidator: stepValidator,
		gate:          gate,
		runnerFactory: runnerFactory,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.persistence, a.registry, a.stepValidator, a.gate, a.runnerFactory, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Stepflow API")
	})

	group := app.Group("/automations")
	group.Get("/", handlers.GetAutomations)
	group.Post("/", handlers.CreateAutomation)
	group.Get("/:id", handlers.GetAutomation)
	group.Put("/:id", handlers.UpdateAutomation)
	group.Delete("/:id", handlers.DeleteAutomation)
	group.Post("/:id/execute", handlers.ExecuteAutomation)
	group.Get("/:id/executions", handlers.GetExecutions)

	app.Post("/validate", handlers.ValidateAutomation)
	app.Get("/step-types", handlers.GetStepTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
