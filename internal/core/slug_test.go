package core

import "testing"

func TestVehicleSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"아이오닉 5", "ioniq5"},
		{"Model Y", "model-y"},
		{"Model 3 Long Range", "model3"},
		{"EV", "ev6"},
		{"GV70 일렉트리파이드", "gv70-일렉트리파이드"},
		{"  Polestar 2 / Long Range  ", "polestar-2-long-range"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := VehicleSlug(tt.name); got != tt.want {
			t.Errorf("VehicleSlug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestVehicleNameFromSlug(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"ev6", "EV6", true},
		{"/vehicles/model-y", "Model Y", true},
		{"/vehicles/model-y/", "Model Y", true},
		{"unknown-car", "", false},
	}

	for _, tt := range tests {
		got, ok := VehicleNameFromSlug(tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("VehicleNameFromSlug(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}
