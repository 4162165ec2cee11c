package evaluator

import (
	"testing"
	"time"

	"github.com/peerwatch/peerwatch/internal/domain/netmap"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Second, "1 minute"},
		{10 * time.Minute, "10 minutes"},
		{time.Hour, "1 hour"},
		{5 * time.Hour, "5 hours"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
		{-time.Minute, "0 minutes"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		previous, current, want float64
	}{
		{100, 130, 0.3},
		{100, 70, -0.3},
		{100, 100, 0},
		{0, 5, 1},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := percentChange(tt.previous, tt.current); got != tt.want {
			t.Errorf("percentChange(%v, %v) = %v, want %v", tt.previous, tt.current, got, tt.want)
		}
	}
}

func TestCountStateChanges(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	entry := func(ago time.Duration, s netmap.PeerStatus) netmap.StateChange {
		return netmap.StateChange{Status: s, Timestamp: now.Add(-ago)}
	}

	tests := []struct {
		name    string
		history []netmap.StateChange
		want    int
	}{
		{"empty", nil, 0},
		{"single entry", []netmap.StateChange{entry(time.Minute, netmap.PeerConnected)}, 0},
		{
			"alternating states",
			[]netmap.StateChange{
				entry(8*time.Minute, netmap.PeerConnected),
				entry(6*time.Minute, netmap.PeerDisconnected),
				entry(4*time.Minute, netmap.PeerConnected),
			},
			2,
		},
		{
			"consecutive duplicates collapse",
			[]netmap.StateChange{
				entry(8*time.Minute, netmap.PeerConnected),
				entry(6*time.Minute, netmap.PeerConnected),
				entry(4*time.Minute, netmap.PeerDisconnected),
				entry(2*time.Minute, netmap.PeerDisconnected),
			},
			1,
		},
		{
			"entries before window excluded",
			[]netmap.StateChange{
				entry(20*time.Minute, netmap.PeerConnected),
				entry(15*time.Minute, netmap.PeerDisconnected),
				entry(5*time.Minute, netmap.PeerConnected),
			},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countStateChanges(tt.history, windowStart); got != tt.want {
				t.Errorf("countStateChanges() = %d, want %d", got, tt.want)
			}
		})
	}
}
