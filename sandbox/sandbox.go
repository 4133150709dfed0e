// Package sandbox runs model-generated JavaScript against a dataset inside an
// embedded interpreter. The runtime exposes only the dataset bindings, the
// stats helpers and the plot functions; there is no module loader, no
// filesystem, no network and no process access. Every run is bounded by a
// wall-clock deadline and an output cap, and faults are returned as errors
// rather than panics.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/nexxia-ai/datagentic/dataset"
)

var (
	// ErrTimeout marks a run interrupted at its deadline.
	ErrTimeout = errors.New("execution timeout")
	// ErrFault marks any runtime failure inside the interpreter: thrown
	// exceptions, host binding errors, output over the cap.
	ErrFault = errors.New("execution fault")

	errOutputLimit = errors.New("output limit")
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 64 * 1024
)

type ResultKind int

const (
	KindScalar ResultKind = iota
	KindTable
	KindImage
)

func (k ResultKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	default:
		return "scalar"
	}
}

// Result is the value a run produced. Exactly one of Scalar, Table or Image
// is populated, selected by Kind. Logs carries everything the code printed.
type Result struct {
	Kind   ResultKind
	Scalar string
	Table  *dataset.Table
	Image  []byte
	Logs   []string
}

// Executor runs code snippets with a per-run deadline and output cap. The
// zero value uses the defaults.
type Executor struct {
	Timeout   time.Duration
	MaxOutput int
}

func NewExecutor() *Executor {
	return &Executor{Timeout: DefaultTimeout, MaxOutput: DefaultMaxOutput}
}

// Execute runs code with the dataset bound as df. The final expression value
// becomes the Result; a rendered plot takes precedence over it. Runs that
// outlive the deadline are interrupted and return ErrTimeout, everything else
// that goes wrong returns ErrFault. The dataset is never modified.
func (e *Executor) Execute(ctx context.Context, code string, ds *dataset.Dataset) (*Result, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty code", ErrFault)
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vm := goja.New()
	st := &runState{maxOutput: maxOutput}
	if err := bind(vm, st, ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFault, err)
	}

	var (
		value  goja.Value
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, errOutputLimit) {
					runErr = fmt.Errorf("%w: output exceeded %d bytes", ErrFault, maxOutput)
					return
				}
				runErr = fmt.Errorf("%w: runtime panic: %v", ErrFault, r)
			}
		}()
		value, runErr = vm.RunString(code)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		vm.Interrupt("interrupted")
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: execution exceeded %s", ErrTimeout, timeout)
		}
		return nil, ctx.Err()
	}

	if runErr != nil {
		return nil, classify(runErr)
	}
	return st.finish(value), nil
}

func classify(err error) error {
	if errors.Is(err, ErrFault) || errors.Is(err, ErrTimeout) {
		return err
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: execution interrupted", ErrTimeout)
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return fmt.Errorf("%w: %v", ErrFault, exc.Value())
	}
	return fmt.Errorf("%w: %v", ErrFault, err)
}
