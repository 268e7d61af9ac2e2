package imports

import (
	"go-psa/internal/config"
	"go-psa/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ImportApi struct {
	Controller       *ImportController
	SocketController *ProgressSocketController
	Config           *config.Config
}

func NewImportApi(controller *ImportController, socketController *ProgressSocketController, cfg *config.Config) *ImportApi {
	return &ImportApi{
		Controller:       controller,
		SocketController: socketController,
		Config:           cfg,
	}
}

func (api *ImportApi) Setup(app *fiber.App) {
	group := app.Group("/api/imports", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Post("/connections/test", api.Controller.TestConnection)
	group.Post("/connections", api.Controller.CreateConnection)
	group.Get("/connections", api.Controller.ListConnections)
	group.Get("/connections/:id", api.Controller.GetConnection)
	group.Delete("/connections/:id", api.Controller.DeleteConnection)
	group.Get("/connections/:id/schema", api.Controller.GetSchema)
	group.Get("/connections/:id/tables/:table/preview", api.Controller.TablePreview)
	group.Post("/connections/:id/joins/preview", api.Controller.PreviewJoin)

	group.Post("/upload", api.Controller.UploadAndPreview)

	group.Post("/mappings", api.Controller.CreateMappingSet)
	group.Get("/mappings", api.Controller.ListMappingSets)
	group.Get("/mappings/:id", api.Controller.GetMappingSet)
	group.Delete("/mappings/:id", api.Controller.DeleteMappingSet)

	group.Post("/executions", api.Controller.StartExecution)
	group.Get("/executions", api.Controller.ListExecutions)
	group.Get("/executions/:id", api.Controller.GetExecution)
	group.Get("/executions/:id/logs", api.Controller.GetExecutionLogs)
	group.Post("/executions/:id/cancel", api.Controller.CancelExecution)

	app.Get("/ws/executions/:id", websocket.New(api.SocketController.HandleProgress))
}
