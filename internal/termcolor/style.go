package termcolor

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styler は出力先ごとのレンダラーとパレットをまとめたものです。
// Ascii プロファイルでは Render が文字列をそのまま返します。
type Styler struct {
	renderer *lipgloss.Renderer
	palette  Palette
	enabled  bool
}

func NewStyler(w io.Writer, profile termenv.Profile, scheme Scheme) *Styler {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(scheme != SchemeLight)
	return &Styler{
		renderer: r,
		palette:  NewPalette(scheme),
		enabled:  profile != termenv.Ascii,
	}
}

func (s *Styler) Enabled() bool {
	return s != nil && s.enabled
}

func (s *Styler) Header(text string) string {
	if s == nil {
		return text
	}
	return s.render(s.renderer.NewStyle().Bold(true).Underline(true), text)
}

func (s *Styler) Severity(severity, text string) string {
	if s == nil {
		return text
	}
	style := s.renderer.NewStyle()
	switch severity {
	case "error":
		style = style.Foreground(lipgloss.Color(s.palette.Error.Hex())).Bold(true)
	case "warning", "warn":
		style = style.Foreground(lipgloss.Color(s.palette.Warning.Hex()))
	default:
		return text
	}
	return s.render(style, text)
}

func (s *Styler) Dim(text string) string {
	if s == nil {
		return text
	}
	return s.render(s.renderer.NewStyle().Foreground(lipgloss.Color(s.palette.Muted.Hex())), text)
}

func (s *Styler) Fixable(text string) string {
	if s == nil {
		return text
	}
	return s.render(s.renderer.NewStyle().Foreground(lipgloss.Color(s.palette.Fixable.Hex())), text)
}

func (s *Styler) render(style lipgloss.Style, text string) string {
	if !s.Enabled() || text == "" {
		return text
	}
	return style.Render(text)
}
