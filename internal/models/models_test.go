package models

import (
	"testing"
	"time"
)

func TestAssignmentSessionDuration(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(12*time.Minute + 30*time.Second)
	before := start.Add(-time.Minute)

	tests := []struct {
		name   string
		end    *time.Time
		want   time.Duration
		wantOK bool
	}{
		{name: "finished session", end: &end, want: 12*time.Minute + 30*time.Second, wantOK: true},
		{name: "still running", end: nil, want: 0, wantOK: false},
		{name: "clock skew", end: &before, want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := AssignmentSession{StartTime: start, EndTime: tt.end}
			got, ok := session.Duration()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Duration() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
