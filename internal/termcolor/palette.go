package termcolor

import "github.com/phyten/monostyle/internal/colorutil"

// 暗い背景と明るい背景の代表色
var (
	darkBackground  = colorutil.RGB{R: 17, G: 24, B: 39}
	lightBackground = colorutil.RGB{R: 249, G: 250, B: 251}
)

var (
	baseError   = colorutil.RGB{R: 229, G: 72, B: 77}
	baseWarning = colorutil.RGB{R: 229, G: 192, B: 123}
	baseMuted   = colorutil.RGB{R: 140, G: 140, B: 140}
	baseFixable = colorutil.RGB{R: 80, G: 200, B: 120}
)

// minContrast は前景色に求めるコントラスト比です。
const minContrast = 4.5

type Palette struct {
	Background colorutil.RGB
	Error      colorutil.RGB
	Warning    colorutil.RGB
	Muted      colorutil.RGB
	Fixable    colorutil.RGB
}

// NewPalette は背景に対して読める色に調整したパレットを返します。
func NewPalette(scheme Scheme) Palette {
	bg := darkBackground
	if scheme == SchemeLight {
		bg = lightBackground
	}
	return Palette{
		Background: bg,
		Error:      colorutil.EnsureContrast(baseError, bg, minContrast),
		Warning:    colorutil.EnsureContrast(baseWarning, bg, minContrast),
		Muted:      colorutil.EnsureContrast(baseMuted, bg, minContrast),
		Fixable:    colorutil.EnsureContrast(baseFixable, bg, minContrast),
	}
}
