package model

import (
	"testing"
	"time"
)

func TestSeverityWeightOrdering(t *testing.T) {
	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Weight() <= ordered[i-1].Weight() {
			t.Errorf("Weight(%s)=%d not greater than Weight(%s)=%d",
				ordered[i], ordered[i].Weight(), ordered[i-1], ordered[i-1].Weight())
		}
	}
	if w := Severity("urgent").Weight(); w != 0 {
		t.Errorf("unknown severity weight = %d, want 0", w)
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusVerified, true},
		{StatusOpen, StatusClosed, true},
		{StatusVerified, StatusClosed, true},
		{StatusVerified, StatusOpen, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusVerified, false},
		{StatusOpen, StatusOpen, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestLocationValid(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want bool
	}{
		{"zero", Location{}, true},
		{"city", Location{Lat: 40.7128, Lng: -74.0060}, true},
		{"poles", Location{Lat: 90, Lng: 180}, true},
		{"lat too big", Location{Lat: 90.1}, false},
		{"lng too small", Location{Lng: -180.5}, false},
	}
	for _, tt := range tests {
		if got := tt.loc.Valid(); got != tt.want {
			t.Errorf("%s: Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Issue{
		ID:         "iss_1",
		Title:      "Broken streetlight",
		Tags:       []string{"lighting"},
		PhotoURLs:  []string{"/uploads/a.jpg"},
		UpvoterIDs: []string{"u1"},
		CreatedAt:  time.Now(),
	}

	clone := orig.Clone()
	clone.Tags[0] = "changed"
	clone.PhotoURLs[0] = "changed"
	clone.UpvoterIDs[0] = "changed"

	if orig.Tags[0] != "lighting" || orig.PhotoURLs[0] != "/uploads/a.jpg" || orig.UpvoterIDs[0] != "u1" {
		t.Fatal("mutating the clone's slices changed the original")
	}
}

func TestCloneKeepsNilSlices(t *testing.T) {
	clone := (&Issue{ID: "iss_2"}).Clone()
	if clone.Tags != nil || clone.PhotoURLs != nil || clone.UpvoterIDs != nil {
		t.Error("clone of nil slices should stay nil, not become empty")
	}
}

func TestUpvotedBy(t *testing.T) {
	issue := &Issue{UpvoterIDs: []string{"u1", "u2"}}
	if !issue.UpvotedBy("u2") {
		t.Error("UpvotedBy(u2) = false, want true")
	}
	if issue.UpvotedBy("u3") {
		t.Error("UpvotedBy(u3) = true, want false")
	}
}
