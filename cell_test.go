package glyphatlas

import "testing"

func TestRGBString(t *testing.T) {
	tests := []struct {
		name string
		c    RGB
		want string
	}{
		{"black", RGB{0, 0, 0}, "#000000"},
		{"white", RGB{255, 255, 255}, "#ffffff"},
		{"mixed", RGB{0x12, 0xab, 0x03}, "#12ab03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.String(); got != tt.want {
				t.Errorf("RGB.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCellFlagsHas(t *testing.T) {
	f := FlagColored | FlagWideChar

	if !f.Has(FlagColored) {
		t.Error("expected FlagColored set")
	}
	if !f.Has(FlagWideChar) {
		t.Error("expected FlagWideChar set")
	}
	if !f.Has(FlagColored | FlagWideChar) {
		t.Error("expected combined mask set")
	}

	f = FlagColored
	if f.Has(FlagWideChar) {
		t.Error("FlagWideChar should not be set")
	}
	if f.Has(FlagColored | FlagWideChar) {
		t.Error("combined mask requires both flags")
	}
}
