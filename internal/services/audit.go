package services

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
)

// AuditEntry captures a before/after snapshot of a settlement mutation. It is
// emitted only after the owning transaction has committed, so audit-store
// availability never affects settlement atomicity.
type AuditEntry struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	UserID   uuid.UUID   `json:"user_id"`
	Entity   string      `json:"entity"`
	EntityID uuid.UUID   `json:"entity_id"`
	Action   string      `json:"action"`
	Before   interface{} `json:"before,omitempty"`
	After    interface{} `json:"after,omitempty"`
}

// AuditLogger receives audit entries as a fire-and-forget side channel.
type AuditLogger interface {
	Record(entry AuditEntry)
}

// LogAuditLogger writes audit entries to the process log.
type LogAuditLogger struct{}

// NewLogAuditLogger constructs a LogAuditLogger.
func NewLogAuditLogger() *LogAuditLogger {
	return &LogAuditLogger{}
}

// Record serializes the entry and logs it. Failures are logged and swallowed.
func (l *LogAuditLogger) Record(entry AuditEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[Audit] Failed to serialize %s %s entry: %v", entry.Entity, entry.Action, err)
		return
	}
	log.Printf("[Audit] %s", body)
}

// emitAudit dispatches an entry without blocking the request path.
func emitAudit(audit AuditLogger, entry AuditEntry) {
	if audit == nil {
		return
	}
	go audit.Record(entry)
}
