package interp

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/memory"
	"github.com/npillmayer/csim/parser"
	"github.com/npillmayer/csim/runtime"
	"github.com/npillmayer/csim/sema"
	"github.com/npillmayer/schuko/gtrace"
)

// State is the execution state of an interpreter.
type State int8

// Execution states.
//
//    Unstarted ──▶ Running ──▶ Paused ◀──▶ Running ──▶ Terminated
//
const (
	Unstarted State = iota
	Running
	Paused
	Terminated
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Terminated:
		return "terminated"
	}
	return "?"
}

// HaltReason tells why execution terminated.
type HaltReason int8

// Halt reasons.
const (
	NotHalted HaltReason = iota
	HaltFinished        // the program ran to its end
	HaltReturned        // main executed a return statement
	HaltBudget          // the step budget has been exhausted
	HaltError           // a runtime error aborted the run
)

func (h HaltReason) String() string {
	switch h {
	case NotHalted:
		return "not halted"
	case HaltFinished:
		return "finished"
	case HaltReturned:
		return "main returned"
	case HaltBudget:
		return "step budget exhausted"
	case HaltError:
		return "runtime error"
	}
	return "?"
}

// Errors returned by Step and Run.
var (
	ErrTerminated      = errors.New("program terminated")
	ErrNoProgram       = errors.New("no program parsed")
	ErrBudgetExhausted = errors.New("step budget exhausted")
)

// Interpreter executes a single C program. It is not safe for concurrent use.
// Create one with New.
type Interpreter struct {
	cfg    Config
	name   string
	mirror io.Writer
	out    strings.Builder
	diags  *diag.Bag
	tu     *ast.TranslationUnit
	res    *sema.Result
	mem    *memory.Memory
	rt     *runtime.Runtime
	// execution
	next     func() (csim.Location, bool)
	stop     func()
	state    State
	halt     HaltReason
	exitCode int64
	loc      csim.Location
	steps    uint64
	failure  error                              // runtime error of the walker
	statics  map[*runtime.Symbol]*runtime.Symbol // static locals by their declaration
	literals map[*ast.Literal]uint64             // string literals in the data region
}

// New creates an interpreter. Without options it uses DefaultConfig.
func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		cfg:   DefaultConfig(),
		name:  "input.c",
		diags: diag.NewBag(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Parse parses and analyzes a source text and prepares its execution.
// Syntax errors are returned, semantic findings are collected in the
// diagnostics. A previously parsed program is discarded.
func (it *Interpreter) Parse(source string) (*ast.TranslationUnit, error) {
	it.Close()
	tu, err := parser.Parse(it.name, source)
	if err != nil {
		return nil, err
	}
	it.reset()
	it.tu = tu
	it.res = sema.Analyze(tu, it.diags)
	if it.mem, err = memory.New(it.cfg.Layout, it.diags); err != nil {
		return nil, fmt.Errorf("cannot set up memory: %w", err)
	}
	it.rt = runtime.NewRuntimeEnvironment(it.cfg.MaxDepth)
	it.next, it.stop = iter.Pull(iter.Seq[csim.Location](it.walk))
	gtrace.InterpreterTracer.Infof("%s: %d declarations, %d diagnostics after analysis",
		it.name, len(tu.Decls), it.diags.Len())
	return tu, nil
}

func (it *Interpreter) reset() {
	it.out.Reset()
	it.diags = diag.NewBag()
	it.state, it.halt = Unstarted, NotHalted
	it.exitCode, it.steps, it.failure = 0, 0, nil
	it.loc = csim.Location{}
	it.statics = make(map[*runtime.Symbol]*runtime.Symbol)
	it.literals = make(map[*ast.Literal]uint64)
}

// Step executes one unit of work and pauses. The first call starts the
// program. A runtime error raised during the step is returned, and the
// interpreter terminates. Stepping a terminated interpreter returns
// ErrTerminated.
func (it *Interpreter) Step() (err error) {
	if it.next == nil {
		if it.tu == nil {
			return ErrNoProgram
		}
		return ErrTerminated
	}
	if it.state == Terminated {
		return ErrTerminated
	}
	defer func() {
		if r := recover(); r != nil {
			e := diag.Runtimef(diag.Unsupported, it.loc, "internal interpreter error: %v", r)
			it.diags.AddError(e)
			it.finish(HaltError)
			err = e
		}
	}()
	if it.state == Unstarted {
		it.state = Running
		if _, ok := it.resume(); !ok { // advance to the first unit
			return it.terminated()
		}
	}
	it.state = Running
	it.NextInstructionID()
	if _, ok := it.resume(); !ok {
		return it.terminated()
	}
	it.state = Paused
	return nil
}

func (it *Interpreter) resume() (csim.Location, bool) {
	loc, ok := it.next()
	if ok {
		it.loc = loc
	}
	return loc, ok
}

// terminated handles the end of the walker.
func (it *Interpreter) terminated() error {
	if it.failure != nil {
		err := it.failure
		it.diags.AddError(err)
		it.finish(HaltError)
		gtrace.InterpreterTracer.Errorf("aborted: %v", err)
		return err
	}
	if it.halt == NotHalted {
		it.finish(HaltFinished)
	} else {
		it.finish(it.halt)
	}
	return nil
}

func (it *Interpreter) finish(reason HaltReason) {
	it.halt = reason
	it.state = Terminated
	if it.stop != nil {
		it.stop()
	}
	it.next, it.stop = nil, nil
	tracer().Infof("terminated after %d steps: %s", it.steps, reason)
}

// Run executes the program until it terminates or budget steps have been
// executed. A budget ≤ 0 selects the configured default. Run returns the
// accumulated output. If the budget is exhausted, the interpreter terminates
// and ErrBudgetExhausted is returned.
func (it *Interpreter) Run(budget int) (string, error) {
	if budget <= 0 {
		budget = it.cfg.Steps
	}
	for n := 0; it.state != Terminated; n++ {
		if n == budget {
			tracer().Infof("step budget of %d exhausted at %s", budget, it.loc)
			it.finish(HaltBudget)
			return it.Output(), ErrBudgetExhausted
		}
		if err := it.Step(); err != nil {
			return it.Output(), err
		}
	}
	return it.Output(), nil
}

// Close stops a suspended program. The interpreter remains inspectable.
func (it *Interpreter) Close() {
	if it.stop != nil {
		it.stop()
		it.next, it.stop = nil, nil
	}
	if it.state != Unstarted {
		it.state = Terminated
	}
}

// State returns the execution state.
func (it *Interpreter) State() State {
	return it.state
}

// Halt returns why the program terminated.
func (it *Interpreter) Halt() HaltReason {
	return it.halt
}

// ExitCode returns the value main returned.
func (it *Interpreter) ExitCode() int64 {
	return it.exitCode
}

// Output returns the output the program has written so far.
func (it *Interpreter) Output() string {
	return it.out.String()
}

// Diagnostics returns the semantic errors, runtime errors and warnings found
// so far.
func (it *Interpreter) Diagnostics() *diag.Bag {
	return it.diags
}

// Result returns the findings of the semantic analysis, or nil.
func (it *Interpreter) Result() *sema.Result {
	return it.res
}

// NextInstructionID counts a step and returns its id. Ids start with 1.
func (it *Interpreter) NextInstructionID() uint64 {
	it.steps++
	return it.steps
}

// Steps returns the number of steps executed.
func (it *Interpreter) Steps() uint64 {
	return it.steps
}

// CurrentLocation returns the location of the unit of work executed by the
// next step.
func (it *Interpreter) CurrentLocation() csim.Location {
	return it.loc
}

// --- Walker ----------------------------------------------------------------

// errStopped unwinds the walker after the consumer stopped it.
var errStopped = errors.New("walker stopped")

// walk executes the program, yielding before every unit of work.
func (it *Interpreter) walk(yield func(csim.Location) bool) {
	pause := func(loc csim.Location) error {
		if !yield(loc) {
			return errStopped
		}
		return nil
	}
	x := &exec{Interpreter: it, pause: pause}
	if err := x.program(); err != nil && !errors.Is(err, errStopped) {
		it.failure = err
	}
}

// write appends program output, respecting the output limit.
func (it *Interpreter) write(s string, at csim.Location) error {
	if it.cfg.OutputLimit > 0 && it.out.Len()+len(s) > it.cfg.OutputLimit {
		return diag.Runtimef(diag.OutOfMemory, at, "output limit of %d bytes exceeded", it.cfg.OutputLimit)
	}
	it.out.WriteString(s)
	if it.mirror != nil {
		if _, err := io.WriteString(it.mirror, s); err != nil {
			tracer().Errorf("cannot mirror output: %v", err)
		}
	}
	return nil
}
