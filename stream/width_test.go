package stream

import (
	"runtime"
	"testing"
)

func TestAutomaticWidth_AtLeastOne(t *testing.T) {
	if w := AutomaticWidth(); w < 1 {
		t.Errorf("AutomaticWidth() = %d, want >= 1", w)
	}
}

func TestSetWidth(t *testing.T) {
	prev := AutomaticWidth()
	defer SetWidth(prev)

	if got := SetWidth(7); got != prev {
		t.Errorf("SetWidth returned %d, want previous %d", got, prev)
	}
	if got := AutomaticWidth(); got != 7 {
		t.Errorf("AutomaticWidth() = %d, want 7", got)
	}

	for _, n := range []int{0, -3} {
		SetWidth(n)
		if got := AutomaticWidth(); got != 1 {
			t.Errorf("SetWidth(%d) left width %d, want 1", n, got)
		}
	}
}

func TestWidthConfig_Width(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)
	tests := []struct {
		name string
		cfg  WidthConfig
		want int
	}{
		{"derived from GOMAXPROCS", WidthConfig{}, procs * DefaultWidthScale},
		{"explicit default", WidthConfig{Default: 10}, 10},
		{"scaled", WidthConfig{Default: 10, Scale: 1.5}, 15},
		{"scaled derived", WidthConfig{Scale: 0.5}, max(procs*DefaultWidthScale/2, 1)},
		{"clamped to one", WidthConfig{Default: 1, Scale: 0.1}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Width(); got != tc.want {
				t.Errorf("Width() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWidthConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WidthConfig
		wantErr bool
	}{
		{"defaults", WidthConfig{Scale: 1}, false},
		{"negative default", WidthConfig{Default: -1, Scale: 1}, true},
		{"zero scale", WidthConfig{Default: 4}, true},
		{"negative scale", WidthConfig{Scale: -2}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfigureWidth(t *testing.T) {
	prev := AutomaticWidth()
	defer SetWidth(prev)

	if got := ConfigureWidth(WidthConfig{Default: 3}); got != 3 {
		t.Errorf("ConfigureWidth() = %d, want 3", got)
	}
	if got := AutomaticWidth(); got != 3 {
		t.Errorf("AutomaticWidth() = %d, want 3", got)
	}
}
