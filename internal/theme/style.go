package theme

import (
	"io"

	"github.com/fatih/color"
)

// Style represents a named color style
type Style struct {
	printer *color.Color
	writer  io.Writer
}

// NewStyle creates a new style with foreground, background and attributes.
// Output goes to color.Output, which handles Windows consoles and NO_COLOR.
func NewStyle(fg, bg color.Attribute, attrs ...color.Attribute) *Style {
	c := color.New(fg)
	if bg != 0 {
		c.Add(bg)
	}
	if len(attrs) > 0 {
		c.Add(attrs...)
	}
	return &Style{printer: c}
}

// WithWriter sets a custom writer for the style
func (s *Style) WithWriter(w io.Writer) *Style {
	s.writer = w
	return s
}

func (s *Style) out() io.Writer {
	if s.writer != nil {
		return s.writer
	}
	return color.Output
}

func (s *Style) Print(a ...interface{}) {
	_, _ = s.printer.Fprint(s.out(), a...)
}

func (s *Style) Printf(format string, a ...interface{}) {
	_, _ = s.printer.Fprintf(s.out(), format, a...)
}

func (s *Style) Println(a ...interface{}) {
	_, _ = s.printer.Fprintln(s.out(), a...)
}

// Sprint returns styled text, for use inside tables and prompts
func (s *Style) Sprint(a ...interface{}) string {
	return s.printer.Sprint(a...)
}
