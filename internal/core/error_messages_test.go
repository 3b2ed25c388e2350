package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing price", ErrPriceRequired, "REQ001"},
		{"bad price wrapped", fmt.Errorf("%w: %q", ErrInvalidPrice, "abc"), "REQ002"},
		{"missing vehicle", ErrVehicleRequired, "REQ003"},
		{"unknown group", fmt.Errorf("%w: north", ErrUnknownGroup), "REQ004"},
		{"cancelled", context.Canceled, "REQ006"},
		{"deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), "REQ007"},
		{"region not found", ErrRegionNotFound, "NF001"},
		{"missing columns", errors.New("csv: missing required columns: 제조사"), "DATA003"},
		{"http status", errors.New("fetch: unexpected http status 429"), "DATA004"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown falls back", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrPriceRequired)
	want := "No purchase price was given (Code: REQ001). Enter the vehicle price in 만원"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrVehicleRequired) {
		t.Error("IsUserFacing(ErrVehicleRequired) = false, want true")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("IsUserFacing(boom) = true, want false")
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
}
