package subscription

import (
	"testing"
	"time"
)

func TestSubscriptionDaysLeft(t *testing.T) {
	now := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	sub := func(end time.Time, active bool) Subscription {
		return Subscription{StartDate: now.Add(-time.Hour), EndDate: end, IsActive: active}
	}

	tests := []struct {
		name string
		sub  Subscription
		want int
	}{
		{name: "whole days", sub: sub(now.Add(30*24*time.Hour), true), want: 30},
		{name: "started day counts", sub: sub(now.Add(29*24*time.Hour+time.Minute), true), want: 30},
		{name: "last hours", sub: sub(now.Add(2*time.Hour), true), want: 1},
		{name: "ended", sub: sub(now.Add(-time.Minute), true), want: 0},
		{name: "ends now", sub: sub(now, true), want: 0},
		{name: "cancelled", sub: sub(now.Add(10*24*time.Hour), false), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.DaysLeft(now); got != tt.want {
				t.Errorf("DaysLeft() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlanDuration(t *testing.T) {
	for _, p := range DefaultPlans {
		if got, want := p.Duration(), time.Duration(p.DurationDays)*24*time.Hour; got != want {
			t.Errorf("%s.Duration() = %v, want %v", p.ID, got, want)
		}
	}
}
