package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kubetide/console/pkg/audit"
)

// AuditHandlers exposes the audit log to administrators.
type AuditHandlers struct {
	audit *audit.Recorder
}

// NewAuditHandlers creates a new audit handlers instance.
func NewAuditHandlers(recorder *audit.Recorder) *AuditHandlers {
	return &AuditHandlers{audit: recorder}
}

// ListLogs returns audit entries, newest last, optionally filtered by
// exact action via ?action=.
// GET /api/admin/logs
func (h *AuditHandlers) ListLogs(c *fiber.Ctx) error {
	entries, err := h.audit.List(c.Query("action"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}
