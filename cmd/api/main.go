package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-psa/internal/common/api"
	"go-psa/internal/config"
	"go-psa/internal/database"
	"go-psa/internal/features/imports"
	"go-psa/internal/features/retention"
	"go-psa/internal/importer"
	"go-psa/internal/logger"
	"go-psa/internal/middleware"
	"go-psa/internal/repository"
	"go-psa/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,
			database.NewDatabase,

			repository.NewConnectionRepository,
			repository.NewMappingRepository,
			repository.NewExecutionRepository,
			repository.NewExecutionLogRepository,
			repository.NewEntityRepository,

			importer.DefaultSink,

			imports.NewProgressHub,
			imports.NewImportService,
			retention.NewRetentionService,

			imports.NewImportController,
			imports.NewProgressSocketController,

			AsRoute(imports.NewImportApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, retentionService *retention.RetentionService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return retentionService.Start()
					},
					OnStop: func(ctx context.Context) error {
						retentionService.Stop()
						return nil
					},
				})
			},
		),
	)

	app.Run()
}
