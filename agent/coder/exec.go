package coder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"

	"github.com/kardolus/minebot/agent/coder/sandbox"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// SandboxUnavailableError means no isolated interpreter could be built.
// Generated code is never run without one.
type SandboxUnavailableError struct {
	Err error
}

func (e *SandboxUnavailableError) Error() string {
	return fmt.Sprintf("sandbox unavailable: %v", e.Err)
}

func (e *SandboxUnavailableError) Unwrap() error { return e.Err }

// Procedure is the compiled form of a staged procedure.
type Procedure func(bot *sandbox.Bot, log func(string), vec *sandbox.VecMath) (string, error)

// InterpreterFactory builds a fresh evaluation context for one attempt.
type InterpreterFactory func(stdout, stderr io.Writer) (*interp.Interpreter, error)

var fmtAllowed = []string{"Sprint", "Sprintf", "Sprintln", "Errorf"}

var wholePackages = []string{"strings/strings", "strconv/strconv", "math/math", "sort/sort"}

// Exports is the complete binding set of the evaluation context: a few
// pure standard packages, formatting-only fmt and the sandbox proxy.
func Exports() interp.Exports {
	out := interp.Exports{}

	fmtSyms := map[string]reflect.Value{}
	for _, name := range fmtAllowed {
		fmtSyms[name] = stdlib.Symbols["fmt/fmt"][name]
	}
	out["fmt/fmt"] = fmtSyms

	for _, key := range wholePackages {
		out[key] = stdlib.Symbols[key]
	}
	for key, syms := range sandbox.Symbols {
		out[key] = syms
	}
	return out
}

// NewInterpreter has no source filesystem, so only the explicit exports are
// importable.
func NewInterpreter(stdout, stderr io.Writer) (*interp.Interpreter, error) {
	i := interp.New(interp.Options{
		Stdout:               stdout,
		Stderr:               stderr,
		SourcecodeFilesystem: emptyFS{},
	})
	if err := i.Use(Exports()); err != nil {
		return nil, err
	}
	return i, nil
}

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func load(ctx context.Context, i *interp.Interpreter, src string) (proc Procedure, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()

	if _, err := i.EvalWithContext(ctx, src); err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	v, err := i.EvalWithContext(ctx, procedurePackage+"."+procedureFunc)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, fmt.Errorf("evaluation failed: %s is not a function", procedureFunc)
	}
	fn, ok := v.Interface().(func(*sandbox.Bot, func(string), *sandbox.VecMath) (string, error))
	if !ok {
		return nil, fmt.Errorf("evaluation failed: %s has the wrong signature", procedureFunc)
	}
	return fn, nil
}

func invoke(proc Procedure, bot *sandbox.Bot, log func(string), vec *sandbox.VecMath) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, sandbox.ErrInterrupted) {
				out, err = "", sandbox.ErrInterrupted
				return
			}
			err = fmt.Errorf("runtime panic: %v", r)
		}
	}()
	return proc(bot, log, vec)
}
