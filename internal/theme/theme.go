// Package theme styles terminal output of the CLI commands.
package theme

import (
	"io"

	"github.com/fatih/color"
)

// Name identifies a built-in theme
type Name string

const (
	Default      Name = "default"
	Professional Name = "professional"
)

// Theme defines the interface for theming in the application
type Theme interface {
	Primary() *Style
	Secondary() *Style
	Success() *Style
	Error() *Style
	Warning() *Style
	Info() *Style
	Subtle() *Style
}

// DefaultTheme is a fixed set of styles
type DefaultTheme struct {
	primary   *Style
	secondary *Style
	success   *Style
	error     *Style
	warning   *Style
	info      *Style
	subtle    *Style
}

// NewDefaultTheme creates a new default theme
func NewDefaultTheme() *DefaultTheme {
	return &DefaultTheme{
		primary:   NewStyle(color.FgHiCyan, 0, color.Bold),
		secondary: NewStyle(color.FgBlue, 0),
		success:   NewStyle(color.FgGreen, 0, color.Bold),
		error:     NewStyle(color.FgRed, 0, color.Bold),
		warning:   NewStyle(color.FgYellow, 0),
		info:      NewStyle(color.FgWhite, 0),
		subtle:    NewStyle(color.FgHiBlack, 0),
	}
}

// NewProfessionalTheme uses muted colors and bold only for headings
func NewProfessionalTheme() *DefaultTheme {
	return &DefaultTheme{
		primary:   NewStyle(color.FgBlue, 0, color.Bold),
		secondary: NewStyle(color.FgHiBlue, 0),
		success:   NewStyle(color.FgGreen, 0),
		error:     NewStyle(color.FgRed, 0),
		warning:   NewStyle(color.FgYellow, 0),
		info:      NewStyle(color.FgWhite, 0),
		subtle:    NewStyle(color.FgHiBlack, 0),
	}
}

// ByName returns the built-in theme called name, falling back to Professional
func ByName(name Name) *DefaultTheme {
	switch name {
	case Default:
		return NewDefaultTheme()
	default:
		return NewProfessionalTheme()
	}
}

// WithWriter points every style of the theme at w
func (t *DefaultTheme) WithWriter(w io.Writer) *DefaultTheme {
	for _, s := range []*Style{t.primary, t.secondary, t.success, t.error, t.warning, t.info, t.subtle} {
		s.WithWriter(w)
	}
	return t
}

func (t *DefaultTheme) Primary() *Style   { return t.primary }
func (t *DefaultTheme) Secondary() *Style { return t.secondary }
func (t *DefaultTheme) Success() *Style   { return t.success }
func (t *DefaultTheme) Error() *Style     { return t.error }
func (t *DefaultTheme) Warning() *Style   { return t.warning }
func (t *DefaultTheme) Info() *Style      { return t.info }
func (t *DefaultTheme) Subtle() *Style    { return t.subtle }
