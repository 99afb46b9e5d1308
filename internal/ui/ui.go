// Package ui implements the terminal progress output and traceback
// policy external collaborators (§6, §9). Grounded on rflow/_ui.py's
// ShellIO.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var palette = []color.Attribute{
	color.FgGreen, color.FgYellow, color.FgBlue,
	color.FgMagenta, color.FgCyan, color.FgWhite,
}

// NodeView is the minimal surface ShellIO needs from a node to render a
// progress line, decoupled from internal/core to avoid an import cycle.
type NodeView interface {
	GraphName() string
	NodeName() string
}

// Shell renders colored, indentation-by-call-depth progress messages,
// the Go analogue of rflow/_ui.py's ShellIO singleton. Unlike the
// original's module-level global, Shell is constructed explicitly and
// passed in, per this repo's no-global-logger convention.
type Shell struct {
	out       io.Writer
	depth     int
	colorIdx  int
	colorized bool
	RunID     uuid.UUID
}

// NewShell builds a Shell writing to w. If colorized is false, output
// is plain text (used for non-tty stdout and in tests).
func NewShell(w io.Writer, colorized bool) *Shell {
	if w == nil {
		w = os.Stdout
	}
	return &Shell{out: w, colorized: colorized, RunID: uuid.New()}
}

func (s *Shell) nextColor() color.Attribute {
	c := palette[s.colorIdx%len(palette)]
	s.colorIdx++
	return c
}

func (s *Shell) bar() string { return strings.Repeat(".", s.depth) }

func (s *Shell) line(attr color.Attribute, text string) {
	prefix := s.bar()
	if s.colorized {
		c := color.New(attr)
		fmt.Fprintf(s.out, "%s%s\n", prefix, c.Sprint(text))
	} else {
		fmt.Fprintf(s.out, "%s%s\n", prefix, text)
	}
}

func (s *Shell) ExecutingEvaluate(n NodeView) {
	s.line(s.nextColor(), fmt.Sprintf("RUN  %s:%s", n.GraphName(), n.NodeName()))
	s.depth++
}

func (s *Shell) DoneEvaluate(n NodeView) {
	s.depth--
	s.line(color.FgWhite, fmt.Sprintf("^%s:%s", n.GraphName(), n.NodeName()))
}

func (s *Shell) ExecutingLoad(n NodeView) {
	s.line(s.nextColor(), fmt.Sprintf("LOAD %s:%s", n.GraphName(), n.NodeName()))
	s.depth++
}

func (s *Shell) DoneLoad(n NodeView) {
	s.depth--
	s.line(color.FgWhite, fmt.Sprintf("^DONE %s:%s", n.GraphName(), n.NodeName()))
}

func (s *Shell) ExecutingTouch(n NodeView) {
	s.line(color.FgMagenta, fmt.Sprintf("%s:%s.touch", n.GraphName(), n.NodeName()))
	s.depth++
}

func (s *Shell) DoneTouch(n NodeView) {
	s.depth--
	s.line(color.FgMagenta, fmt.Sprintf("DONE %s:%s", n.GraphName(), n.NodeName()))
}

func (s *Shell) ErrorOccurred(n NodeView, msg string) {
	s.line(color.FgRed, fmt.Sprintf("%s:%s, %s", n.GraphName(), n.NodeName(), msg))
}

// TracebackPolicy decides what happens when a UserError reaches the UI
// boundary: exit the process, or return the error to the caller. This
// consolidates the specification's §9 open question (the original
// sometimes exits, sometimes raises) into one injected object.
type TracebackPolicy interface {
	Handle(err error) error
}

// ExitProcessPolicy terminates the process on any handled error. It is
// built by internal/rconfig but not applied to nodes by internal/cli,
// whose nodes keep ReturnPolicy. Verbose and Quiet are populated from
// internal/rconfig.Config (the --debug/--quiet flags, or their
// RFLOW_DEBUG/RFLOW_QUIET env fallbacks) and control how much gets
// printed before exiting, orthogonally to the exit-vs-return decision
// itself (§9's traceback-policy consolidation keeps the two concerns
// separate).
type ExitProcessPolicy struct {
	ExitCode int
	Verbose  bool
	Quiet    bool
}

func (p ExitProcessPolicy) Handle(err error) error {
	if err == nil {
		return nil
	}
	if !p.Quiet {
		if p.Verbose {
			for e := err; e != nil; e = errors.Unwrap(e) {
				fmt.Fprintln(os.Stderr, e)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(p.ExitCode)
	return nil // unreachable
}

// ReturnPolicy returns the error unchanged to the caller. This is every
// node's default policy (tests and CLI alike), matching rflow's
// "raise-exp" policy.
type ReturnPolicy struct{}

func (ReturnPolicy) Handle(err error) error { return err }
