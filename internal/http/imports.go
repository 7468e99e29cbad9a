package http

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/services"
	"github.com/abdnh/anki-copycat-importer/internal/utils"
)

const defaultMaxUploadSize = 512 << 20

// ImportsController starts, tracks and cancels imports.
type ImportsController struct {
	imports       ImportRunner
	uploadDir     string
	maxUploadSize int64
}

func NewImportsController(imports ImportRunner, uploadDir string, maxUploadSize int64) *ImportsController {
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "copycat-uploads")
	}
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &ImportsController{
		imports:       imports,
		uploadDir:     uploadDir,
		maxUploadSize: maxUploadSize,
	}
}

// ImportStartedResponse is returned when an import was queued.
type ImportStartedResponse struct {
	RunID     string `json:"run_id"`
	StatusURL string `json:"status_url"`
}

// AnkiAppImportRequest is the JSON body of an AnkiApp import. Paths are on
// the server.
type AnkiAppImportRequest struct {
	Paths       []services.PathRequest `json:"paths"`
	RemoteMedia *bool                  `json:"remote_media"`
}

// OnlineImportRequest is the body of a Noji, AnkiPro or AnkiApp online
// import. Credentials left empty come from the saved settings.
type OnlineImportRequest struct {
	Token         string `json:"token"`
	ClientID      string `json:"client_id"`
	ClientToken   string `json:"client_token"`
	ClientVersion string `json:"client_version"`
	RemoteMedia   *bool  `json:"remote_media"`
	DownloadMedia *bool  `json:"download_media"`
}

func (ic *ImportsController) start(c *gin.Context, req services.Request) {
	runID, err := ic.imports.Start(c.Request.Context(), req)
	if err != nil {
		removeAll(c, req.TempFiles)
		respondImportError(c, err, "start import")
		return
	}
	respondAccepted(c, "import started", ImportStartedResponse{
		RunID:     runID,
		StatusURL: "/api/imports/" + runID,
	})
}

// ImportAnkiApp handles POST /api/imports/ankiapp
// Accepts either a multipart upload (field "file", with "type" db or zip)
// or a JSON body naming paths on the server. An empty JSON body imports the
// default AnkiApp data folder.
func (ic *ImportsController) ImportAnkiApp(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		ic.importUpload(c)
		return
	}

	var body AnkiAppImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	ic.start(c, services.Request{
		Source:      config.SourceAnkiApp,
		Paths:       body.Paths,
		RemoteMedia: body.RemoteMedia,
	})
}

func (ic *ImportsController) importUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ic.maxUploadSize)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "file exceeds "+strconv.FormatInt(ic.maxUploadSize, 10)+" bytes")
			return
		}
		respondBadRequest(c, "file is required")
		return
	}

	pathType := c.PostForm("type")
	if pathType == "" {
		pathType = typeFromExtension(file.Filename)
	}
	if pathType != "db" && pathType != "zip" {
		respondBadRequest(c, "type must be db or zip")
		return
	}

	dir := filepath.Join(ic.uploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		respondInternalError(c, err, "create upload directory")
		return
	}
	dst := filepath.Join(dir, utils.SanitizeMediaFilename(filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		removeAll(c, []string{dir})
		respondInternalError(c, err, "save upload")
		return
	}

	req := services.Request{
		Source:    config.SourceAnkiApp,
		Paths:     []services.PathRequest{{Path: dst, Type: pathType}},
		TempFiles: []string{dir},
	}
	if v := c.PostForm("remote_media"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			req.RemoteMedia = &b
		}
	}
	ic.start(c, req)
}

func typeFromExtension(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip":
		return "zip"
	case ".db", ".sqlite", ".sqlite3":
		return "db"
	}
	return ""
}

func removeAll(c *gin.Context, paths []string) {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			logutil.GetLogger(c.Request.Context()).Warn("failed to remove upload", zap.String("path", p), zap.Error(err))
		}
	}
}

// ImportOnline handles POST /api/imports/:source for the online sources.
func (ic *ImportsController) ImportOnline(source config.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body OnlineImportRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				respondBadRequest(c, "invalid request body: "+err.Error())
				return
			}
		}
		ic.start(c, services.Request{
			Source:        source,
			Token:         body.Token,
			ClientID:      body.ClientID,
			ClientToken:   body.ClientToken,
			ClientVersion: body.ClientVersion,
			RemoteMedia:   body.RemoteMedia,
			DownloadMedia: body.DownloadMedia,
		})
	}
}

// GetImport handles GET /api/imports/:id
func (ic *ImportsController) GetImport(c *gin.Context) {
	status, err := ic.imports.Status(c.Param("id"))
	if err != nil {
		respondImportError(c, err, "get import")
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelImport handles DELETE /api/imports/:id
// The import stops at its next cancellation check; poll GET for the outcome.
func (ic *ImportsController) CancelImport(c *gin.Context) {
	if err := ic.imports.Cancel(c.Param("id")); err != nil {
		respondImportError(c, err, "cancel import")
		return
	}
	respondAccepted(c, "cancellation requested", gin.H{"run_id": c.Param("id")})
}

// ListImports handles GET /api/imports
func (ic *ImportsController) ListImports(c *gin.Context) {
	limit, _ := parsePagination(c)
	list, err := ic.imports.RecentRuns(limit)
	if err != nil {
		respondInternalError(c, err, "list imports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": list})
}
