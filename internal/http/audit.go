package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdnh/anki-copycat-importer/internal/entities"
)

type AuditController struct {
	audit AuditLog
}

func NewAuditController(audit AuditLog) *AuditController {
	return &AuditController{audit: audit}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?source=noji&limit=25&offset=0
// A source narrows the list to the imports from it.
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c)

	var (
		events []entities.AuditEvent
		total  int64
		err    error
	)
	if source := c.Query("source"); source != "" {
		events, total, err = ac.audit.GetImportEvents(source, limit, offset)
	} else {
		events, total, err = ac.audit.GetEvents(limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "get audit events")
		return
	}

	c.JSON(http.StatusOK, paginated(events, total, limit, offset))
}
