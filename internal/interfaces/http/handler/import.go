package handler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgreport/backend/internal/application/importer"
	"github.com/orgreport/backend/internal/infrastructure/persistence"
	"github.com/orgreport/backend/internal/infrastructure/persistence/models"
	"github.com/orgreport/backend/internal/infrastructure/persistence/reconcile"
	"github.com/orgreport/backend/internal/interfaces/http/dto"
)

// entityFactories maps a table name to a constructor for its model. Tables
// absent here cannot be imported over the API.
var entityFactories = map[string]func() models.Entity{
	models.TablePeople:        func() models.Entity { return &models.PersonModel{} },
	models.TablePositions:     func() models.Entity { return &models.PositionModel{} },
	models.TableLocations:     func() models.Entity { return &models.LocationModel{} },
	models.TableOrganizations: func() models.Entity { return &models.OrganizationModel{} },
	models.TableReports:       func() models.Entity { return &models.ReportModel{} },
}

// ImportHandler exposes the batch import pipeline over HTTP.
type ImportHandler struct {
	BaseHandler
	service *importer.Service
	log     *zap.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(service *importer.Service, log *zap.Logger) *ImportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportHandler{service: service, log: log}
}

// RegisterRoutes registers import routes on the given router group
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	{
		imports.POST("", h.Import)
		imports.GET("/runs", h.ListRuns)
		imports.GET("/runs/:id", h.GetRun)
	}
}

// Import runs a batch of entities through reconciliation.
//
// POST /api/v1/imports
func (h *ImportHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entities, err := decodeItems(req.Items)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rules := reconcile.NewRuleSet()
	for _, r := range req.Rules {
		rules.Add(r.Table, r.Columns...)
	}

	source := req.Source
	if source == "" {
		source = "api"
	}

	summary, err := h.service.Import(c.Request.Context(), entities, rules, importer.Options{
		Source:           source,
		RememberPrevious: req.RememberPrevious,
	})
	if err != nil {
		h.log.Error("import request failed", zap.String("source", source), zap.Error(err))
		h.InternalError(c, "Import failed: "+err.Error())
		return
	}
	h.Success(c, summary)
}

// ListRuns returns recent import runs, newest first.
//
// GET /api/v1/imports/runs
func (h *ImportHandler) ListRuns(c *gin.Context) {
	var req dto.ImportRunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid request parameters: "+err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	runs, err := h.service.History(c.Request.Context(), req.Limit)
	if err != nil {
		h.InternalError(c, "Failed to list import runs")
		return
	}
	h.Success(c, runs)
}

// GetRun returns one import run by id.
//
// GET /api/v1/imports/runs/:id
func (h *ImportHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid run ID")
		return
	}

	run, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrRunNotFound) {
			h.NotFound(c, "Import run not found")
			return
		}
		h.InternalError(c, "Failed to load import run")
		return
	}
	h.Success(c, run)
}

// decodeItems turns the request items into persistence models. Unknown
// tables and malformed bodies reject the whole request; partial failure
// handling starts only once the batch reaches reconciliation.
func decodeItems(items []dto.ImportItem) ([]models.Entity, error) {
	entities := make([]models.Entity, 0, len(items))
	for i, item := range items {
		factory, ok := entityFactories[item.Table]
		if !ok {
			return nil, fmt.Errorf("item %d: unsupported table %q", i, item.Table)
		}
		e := factory()
		if err := json.Unmarshal(item.Data, e); err != nil {
			return nil, fmt.Errorf("item %d: invalid %s body: %w", i, item.Table, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}
