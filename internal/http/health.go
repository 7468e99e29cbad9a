package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdnh/anki-copycat-importer/internal/database"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Time       string            `json:"time"`
	Version    string            `json:"version,omitempty"`
	Checks     map[string]string `json:"checks"`
	Collection *database.Counts  `json:"collection,omitempty"`
}

type HealthController struct {
	db         *database.Database
	collection CollectionStats
	version    string
}

func NewHealthController(db *database.Database, collection CollectionStats, version string) *HealthController {
	return &HealthController{
		db:         db,
		collection: collection,
		version:    version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}
	if h.collection != nil && status == "healthy" {
		if counts, err := h.collection.Counts(c.Request.Context()); err == nil {
			health.Collection = &counts
		} else {
			checks["collection"] = "error: " + err.Error()
		}
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
