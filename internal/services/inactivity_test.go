package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/tillpoint/internal/models"
)

func TestCheckInactivityLevels(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name  string
		idle  time.Duration
		level string
	}{
		{"fresh", 5 * time.Minute, InactivityNone},
		{"just under warning", 12*time.Hour - time.Minute, InactivityNone},
		{"at warning", 12 * time.Hour, InactivityWarning},
		{"between thresholds", 18 * time.Hour, InactivityWarning},
		{"at critical", 24 * time.Hour, InactivityCritical},
		{"long abandoned", 72 * time.Hour, InactivityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			shift := &models.Shift{LastActivityAt: now.Add(-tc.idle)}
			status := CheckInactivity(shift, now)
			require.Equal(t, tc.level, status.Level)
			require.Equal(t, tc.idle, status.IdleFor)
			if tc.level == InactivityNone {
				require.Empty(t, status.Message)
			} else {
				require.NotEmpty(t, status.Message)
			}
		})
	}
}

func TestCheckInactivityNeverMutates(t *testing.T) {
	opened := time.Now().Add(-30 * time.Hour)
	shift := &models.Shift{Status: models.ShiftStatusOpen, LastActivityAt: opened}

	status := CheckInactivity(shift, time.Now())
	require.Equal(t, InactivityCritical, status.Level)
	require.True(t, shift.IsOpen())
	require.Equal(t, opened, shift.LastActivityAt)
}
