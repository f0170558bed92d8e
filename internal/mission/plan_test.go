package mission

import (
	"strings"
	"testing"

	"github.com/skylark-uav/missiond/internal/geo"
	"github.com/skylark-uav/missiond/internal/ground"
)

func TestBuildPlanValid(t *testing.T) {
	home := geo.Position{Lat: 33.194044, Lon: -87.512971}
	offsets := []ground.Offset{
		{X: 30, Y: 40, Z: 10},
		{X: -100, Y: 0, Z: 25},
	}

	plan, err := buildPlan(home, offsets, DefaultParams())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan length = %d, want 2", len(plan))
	}
	if plan[0].Alt != 10 || plan[1].Alt != 25 {
		t.Errorf("altitudes = %.1f, %.1f, want 10, 25", plan[0].Alt, plan[1].Alt)
	}
	if d := geo.Distance(home, plan[0]); d > 100 {
		t.Errorf("waypoint 0 is %.1fm from home, expected ~60m", d)
	}
}

func TestBuildPlanRejections(t *testing.T) {
	home := geo.Position{Lat: 33.194044, Lon: -87.512971}

	tests := []struct {
		name    string
		offsets []ground.Offset
		wantErr string
	}{
		{"empty", nil, "empty"},
		{"beyond radius", []ground.Offset{{X: 0, Y: 400, Z: 10}}, "maximum radius"},
		{"too high", []ground.Offset{{X: 10, Y: 10, Z: 80}}, "exceeds maximum"},
		{"too low", []ground.Offset{{X: 10, Y: 10, Z: 1}}, "under minimum"},
		{"second point bad", []ground.Offset{{X: 10, Y: 10, Z: 10}, {X: 0, Y: 0, Z: 0.5}}, "waypoint 1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildPlan(home, tc.offsets, DefaultParams())
			if err == nil {
				t.Fatal("buildPlan succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
