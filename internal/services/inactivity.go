package services

import (
	"fmt"
	"time"

	"github.com/example/tillpoint/internal/models"
)

// Inactivity warning levels.
const (
	InactivityNone     = "none"
	InactivityWarning  = "warning"
	InactivityCritical = "critical"
)

const (
	inactivityWarningAfter  = 12 * time.Hour
	inactivityCriticalAfter = 24 * time.Hour
)

// InactivityStatus describes how long a shift has gone without activity and
// what the caller should surface to the cashier. It is advisory only: a shift
// is never closed automatically no matter how long it stays idle.
type InactivityStatus struct {
	Level    string        `json:"level"`
	IdleFor  time.Duration `json:"-"`
	IdleText string        `json:"idle_for"`
	Message  string        `json:"message,omitempty"`
}

// CheckInactivity derives the warning level from the time elapsed since the
// shift's last activity. It never mutates the shift.
func CheckInactivity(shift *models.Shift, now time.Time) InactivityStatus {
	idle := now.Sub(shift.LastActivityAt)
	status := InactivityStatus{
		Level:    InactivityNone,
		IdleFor:  idle,
		IdleText: idle.Truncate(time.Minute).String(),
	}

	switch {
	case idle >= inactivityCriticalAfter:
		status.Level = InactivityCritical
		status.Message = fmt.Sprintf("Shift has been open for over %d hours without activity. Close it or hand it over.", int(idle.Hours()))
	case idle >= inactivityWarningAfter:
		status.Level = InactivityWarning
		status.Message = fmt.Sprintf("Shift has been inactive for %d hours. Consider closing it.", int(idle.Hours()))
	}

	return status
}
