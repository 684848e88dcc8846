package console

import (
	"fmt"
	"io"
)

const (
	spin  = "↻"
	chk   = "✓"
	cross = "✕"
	warn  = "⚠"
	globe = "\U0001f30d"
	watch = "⏱"
)

// Narrator writes symbol-prefixed progress lines to a terminal.
type Narrator struct {
	w io.Writer
}

func New(w io.Writer) *Narrator { return &Narrator{w: w} }

func (n *Narrator) line(symbol, format string, args ...any) {
	_, _ = fmt.Fprintf(n.w, " %s %s\n", symbol, fmt.Sprintf(format, args...))
}

func (n *Narrator) Progress(format string, args ...any) { n.line(spin, format, args...) }
func (n *Narrator) Success(format string, args ...any)  { n.line(chk, format, args...) }
func (n *Narrator) Failure(format string, args ...any)  { n.line(cross, format, args...) }
func (n *Narrator) Warn(format string, args ...any)     { n.line(warn, format, args...) }
func (n *Narrator) URL(url string)                      { n.line(globe, "%s", url) }
func (n *Narrator) Finished(format string, args ...any) { n.line(watch, format, args...) }

func (n *Narrator) Plain(format string, args ...any) {
	_, _ = fmt.Fprintf(n.w, format+"\n", args...)
}
