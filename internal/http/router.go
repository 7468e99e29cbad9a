package http

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/abdnh/anki-copycat-importer/internal/auth"
	"github.com/abdnh/anki-copycat-importer/internal/config"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger())
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	if cfg.Auth != nil {
		router.Use(cfg.Auth.Handler())
	}
	if cfg.MaxUploadSize > 0 {
		router.MaxMultipartMemory = min(cfg.MaxUploadSize, 32<<20)
	}

	health := NewHealthController(cfg.Database, cfg.Collection, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.Imports != nil {
		imports := NewImportsController(cfg.Imports, cfg.UploadDir, cfg.MaxUploadSize)
		router.GET("/api/imports", imports.ListImports)
		router.POST("/api/imports/ankiapp", imports.ImportAnkiApp)
		router.POST("/api/imports/algoapp", imports.ImportOnline(config.SourceAlgoApp))
		router.POST("/api/imports/noji", imports.ImportOnline(config.SourceNoji))
		router.POST("/api/imports/ankipro", imports.ImportOnline(config.SourceAnkiPro))
		router.GET("/api/imports/:id", imports.GetImport)
		router.DELETE("/api/imports/:id", imports.CancelImport)
	}

	if cfg.Settings != nil {
		settings := NewSettingsController(cfg.Settings, cfg.Audit)
		router.GET("/api/settings/importers", settings.GetImporterSettings)
		router.PUT("/api/settings/importers", settings.UpdateImporterSettings)
	}

	if cfg.Audit != nil {
		audit := NewAuditController(cfg.Audit)
		router.GET("/api/audit", audit.GetAuditEvents)
	}

	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.Maintenance)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/maintenance/run", tasksController.RunMaintenance)
	}

	return router
}
