package imports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-psa/internal/config"
	"go-psa/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ImportController struct {
	Service   ImportService
	UploadDir string
}

func NewImportController(service ImportService, cfg *config.Config) *ImportController {
	if _, err := os.Stat(cfg.FSPath); os.IsNotExist(err) {
		os.MkdirAll(cfg.FSPath, 0755)
	}
	return &ImportController{
		Service:   service,
		UploadDir: cfg.FSPath,
	}
}

func (c *ImportController) TestConnection(ctx *fiber.Ctx) error {
	var cfg models.ConnectionConfig
	if err := ctx.BodyParser(&cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid connection config"})
	}

	result := c.Service.TestConnection(ctx.UserContext(), &cfg)
	return ctx.JSON(result)
}

func (c *ImportController) CreateConnection(ctx *fiber.Ctx) error {
	var cfg models.ConnectionConfig
	if err := ctx.BodyParser(&cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid connection config"})
	}

	if err := c.Service.SaveConnection(ctx.UserContext(), &cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(cfg)
}

func (c *ImportController) ListConnections(ctx *fiber.Ctx) error {
	conns, err := c.Service.ListConnections(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(conns)
}

func (c *ImportController) GetConnection(ctx *fiber.Ctx) error {
	cfg, err := c.Service.GetConnection(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "connection not found"})
	}
	return ctx.JSON(cfg)
}

func (c *ImportController) DeleteConnection(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteConnection(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "connection not found"})
	}
	return ctx.JSON(fiber.Map{"message": "connection deleted"})
}

func (c *ImportController) GetSchema(ctx *fiber.Ctx) error {
	schema, err := c.Service.GetSchema(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(schema)
}

func (c *ImportController) TablePreview(ctx *fiber.Ctx) error {
	table := ctx.Params("table")
	limit := ctx.QueryInt("limit", 10)

	rows, err := c.Service.TablePreview(ctx.UserContext(), ctx.Params("id"), table, limit)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"table": table, "rows": rows})
}

func (c *ImportController) PreviewJoin(ctx *fiber.Ctx) error {
	var cfg models.JoinedTableConfig
	if err := ctx.BodyParser(&cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid join config"})
	}
	limit := ctx.QueryInt("limit", 10)

	preview, err := c.Service.PreviewJoin(ctx.UserContext(), ctx.Params("id"), &cfg, limit)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(preview)
}

// UploadAndPreview stores an uploaded CSV/Excel/JSON file and returns
// its inferred schema plus sample rows, so the caller can build a file
// connection without guessing field types.
func (c *ImportController) UploadAndPreview(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	originalName := filepath.Base(fileHeader.Filename)
	uniqueName := fmt.Sprintf("%d_%s", time.Now().UnixNano(), originalName)
	uniqueName = strings.ReplaceAll(uniqueName, " ", "_")
	dstPath := filepath.Join(c.UploadDir, uniqueName)

	if err := ctx.SaveFile(fileHeader, dstPath); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "error saving file"})
	}

	kind, err := fileKind(originalName)
	if err != nil {
		os.Remove(dstPath)
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cfg := &models.ConnectionConfig{
		Name: originalName,
		Kind: kind,
		File: &models.FileConfig{
			Path:       dstPath,
			Delimiter:  ctx.FormValue("delimiter"),
			HasHeaders: ctx.FormValue("has_headers", "true") != "false",
			Sheet:      ctx.FormValue("sheet"),
		},
	}

	result := c.Service.TestConnection(ctx.UserContext(), cfg)
	if !result.Success {
		os.Remove(dstPath)
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": result.Message})
	}

	var rows []map[string]interface{}
	if result.Schema != nil && len(result.Schema.Tables) > 0 {
		rows, _ = c.Service.PreviewWithConfig(ctx.UserContext(), cfg, result.Schema.Tables[0].Name, 10)
	}

	return ctx.JSON(fiber.Map{
		"path":         dstPath,
		"file_name":    originalName,
		"kind":         kind,
		"schema":       result.Schema,
		"record_count": result.RecordCount,
		"rows":         rows,
	})
}

func fileKind(name string) (models.SourceKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return models.SourceCSV, nil
	case ".xlsx", ".xls":
		return models.SourceExcel, nil
	case ".json":
		return models.SourceJSON, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
}

type startExecutionRequest struct {
	MappingSetID string `json:"mapping_set_id"`
	DryRun       bool   `json:"dry_run"`
}

func (c *ImportController) CreateMappingSet(ctx *fiber.Ctx) error {
	var set models.MappingSet
	if err := ctx.BodyParser(&set); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid mapping set"})
	}

	if err := c.Service.SaveMappingSet(ctx.UserContext(), &set); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(set)
}

func (c *ImportController) ListMappingSets(ctx *fiber.Ctx) error {
	sets, err := c.Service.ListMappingSets(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(sets)
}

func (c *ImportController) GetMappingSet(ctx *fiber.Ctx) error {
	set, err := c.Service.GetMappingSet(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mapping set not found"})
	}
	return ctx.JSON(set)
}

func (c *ImportController) DeleteMappingSet(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteMappingSet(ctx.UserContext(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mapping set not found"})
	}
	return ctx.JSON(fiber.Map{"message": "mapping set deleted"})
}

func (c *ImportController) StartExecution(ctx *fiber.Ctx) error {
	var req startExecutionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.MappingSetID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mapping_set_id is required"})
	}

	exec, err := c.Service.StartExecution(ctx.UserContext(), req.MappingSetID, req.DryRun)
	if err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusAccepted).JSON(exec)
}

func (c *ImportController) GetExecution(ctx *fiber.Ctx) error {
	exec, err := c.Service.GetExecution(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "execution not found"})
	}
	return ctx.JSON(exec)
}

func (c *ImportController) ListExecutions(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)

	execs, err := c.Service.ListExecutions(ctx.UserContext(), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execs)
}

func (c *ImportController) GetExecutionLogs(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 200)

	logs, err := c.Service.GetExecutionLogs(ctx.UserContext(), ctx.Params("id"), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}

func (c *ImportController) CancelExecution(ctx *fiber.Ctx) error {
	if err := c.Service.CancelExecution(ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "cancellation requested"})
}
