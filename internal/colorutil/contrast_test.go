package colorutil

import "testing"

func TestContrastRatio(t *testing.T) {
	cases := []struct {
		name     string
		fg, bg   RGB
		minRatio float64
	}{
		{"blackOnWhite", RGB{0, 0, 0}, RGB{255, 255, 255}, 4.5},
		{"whiteOnBlack", RGB{255, 255, 255}, RGB{0, 0, 0}, 4.5},
		{"darkRedOnWhite", RGB{185, 28, 28}, RGB{255, 255, 255}, 4.5},
		{"amberOnBlack", RGB{245, 158, 11}, RGB{17, 24, 39}, 4.5},
	}
	for _, tc := range cases {
		ratio := ContrastRatio(tc.fg, tc.bg)
		if ratio < tc.minRatio {
			t.Fatalf("%s contrast ratio %.2f < %.2f", tc.name, ratio, tc.minRatio)
		}
	}
}

func TestAutoTextColor(t *testing.T) {
	cases := []struct {
		name string
		bg   RGB
		want RGB
	}{
		{"lightBackground", RGB{255, 247, 237}, black},
		{"darkBackground", RGB{15, 23, 42}, white},
		{"medium", RGB{120, 113, 108}, white},
	}
	for _, tc := range cases {
		got := AutoTextColor(tc.bg)
		if got != tc.want {
			t.Fatalf("%s AutoTextColor=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestEnsureContrastPrefersAutoWhenNeeded(t *testing.T) {
	bg := RGB{255, 255, 255}
	fg := RGB{255, 0, 0}
	ensured := EnsureContrast(fg, bg, 4.5)
	if ContrastRatio(ensured, bg) < 4.5 {
		t.Fatalf("expected EnsureContrast to meet ratio, got %.2f", ContrastRatio(ensured, bg))
	}
}

func TestEnsureContrastKeepsReadableColor(t *testing.T) {
	fg := RGB{255, 255, 255}
	bg := RGB{0, 0, 0}
	if got := EnsureContrast(fg, bg, 4.5); got != fg {
		t.Fatalf("readable color should be kept, got %v", got)
	}
}

func TestEnsureContrastKeepsHue(t *testing.T) {
	bg := RGB{255, 255, 255}
	fg := RGB{229, 192, 123}
	got := EnsureContrast(fg, bg, 3)
	if got == black {
		t.Fatalf("expected a darkened amber, got black")
	}
	if got.R <= got.B {
		t.Fatalf("hue should stay warm, got %v", got)
	}
	if ContrastRatio(got, bg) < 3 {
		t.Fatalf("contrast %.2f < 3", ContrastRatio(got, bg))
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := RGB{0xe5, 0x48, 0x4d}
	if got := c.Hex(); got != "#e5484d" {
		t.Fatalf("Hex=%q", got)
	}
	parsed, err := ParseHex("#E5484D")
	if err != nil {
		t.Fatalf("ParseHex error: %v", err)
	}
	if parsed != c {
		t.Fatalf("ParseHex=%v want %v", parsed, c)
	}
	if _, err := ParseHex("#fff"); err == nil {
		t.Fatal("short hex should be rejected")
	}
}

func TestMix(t *testing.T) {
	if got := Mix(black, white, 0.5); got != (RGB{128, 128, 128}) {
		t.Fatalf("Mix midpoint=%v", got)
	}
	if got := Mix(black, white, 2); got != white {
		t.Fatalf("Mix should clamp, got %v", got)
	}
}
