// Package rerrors implements the engine's error taxonomy: SchemaError,
// BindingError, IOError and UserError, each wrapping one of four sentinel
// kinds so callers can classify failures with errors.Is/errors.As without
// depending on concrete types.
package rerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel kinds. Wrapper types below Unwrap to one of these.
var (
	ErrSchema  = errors.New("schema error")
	ErrBinding = errors.New("binding error")
	ErrIO      = errors.New("io error")
	ErrUser    = errors.New("user error")
)

// LineInfo captures the source location a node was instantiated at, the
// Go analogue of rflow's inspect.stack()-based get_caller_lineinfo.
type LineInfo struct {
	File string
	Line int
	Func string
}

func (l LineInfo) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%q, line %d, in %s", l.File, l.Line, l.Func)
}

// CallerLineInfo captures the caller at the given stack depth above its
// own caller. skip=0 means "whoever called CallerLineInfo".
func CallerLineInfo(skip int) LineInfo {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return LineInfo{}
	}
	fn := runtime.FuncForPC(pc)
	name := ""
	if fn != nil {
		name = fn.Name()
	}
	return LineInfo{File: file, Line: line, Func: name}
}

// SchemaError reports assignment to an unknown argument name, a
// non-argumentable value, a duplicate node name, or a node added to no
// graph at call time.
type SchemaError struct {
	Field string
	Msg   string
	Line  LineInfo
}

func (e *SchemaError) Error() string {
	if li := e.Line.String(); li != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Msg, li)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// BindingError reports an unbound argument at call time, or a load
// function declared without an attached resource.
type BindingError struct {
	Node string
	Msg  string
	Line LineInfo
}

func (e *BindingError) Error() string {
	if li := e.Line.String(); li != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Node, e.Msg, li)
	}
	return fmt.Sprintf("%s: %s", e.Node, e.Msg)
}

func (e *BindingError) Unwrap() error { return ErrBinding }

// IOError reports a signature-store or resource read/write failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return ErrIO }

// UserError wraps an exception raised by a user evaluate/load function.
type UserError struct {
	Node string
	Err  error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

func (e *UserError) Unwrap() error { return ErrUser }
