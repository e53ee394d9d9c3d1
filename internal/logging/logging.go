// Package logging prints tagged progress lines in the "[tag] message" style,
// with warnings and errors colored when the output supports it.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const (
	ColorAuto = "auto"
	ColorOn   = "on"
	ColorOff  = "off"
)

type Logger struct {
	out  *log.Logger
	w    io.Writer
	warn *color.Color
	err  *color.Color
}

// New returns a Logger writing to w with "[tag] " in front of every line.
// mode is one of ColorAuto, ColorOn or ColorOff; auto enables color only
// when w is a terminal.
func New(w io.Writer, tag, mode string) *Logger {
	l := &Logger{
		out:  log.New(w, "["+tag+"] ", 0),
		w:    w,
		warn: color.New(color.FgYellow),
		err:  color.New(color.FgRed, color.Bold),
	}
	if UseColor(w, mode) {
		l.warn.EnableColor()
		l.err.EnableColor()
	} else {
		l.warn.DisableColor()
		l.err.DisableColor()
	}
	return l
}

// Discard returns a Logger that prints nothing.
func Discard() *Logger { return New(io.Discard, "", ColorOff) }

// UseColor reports whether output to w should be colorized under mode.
func UseColor(w io.Writer, mode string) bool {
	switch strings.ToLower(mode) {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *Logger) Infof(format string, args ...any) {
	l.out.Printf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.out.Print(l.warn.Sprint("WARNING: " + fmt.Sprintf(format, args...)))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.out.Print(l.err.Sprint("ERROR: " + fmt.Sprintf(format, args...)))
}

// Println writes an untagged line, used for tables and blank separators.
func (l *Logger) Println(args ...any) {
	fmt.Fprintln(l.w, args...)
}
