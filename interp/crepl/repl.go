package main

import (
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/csim/interp"
	"github.com/pterm/pterm"
)

// REPL is our stepping session.
type REPL struct {
	it   *interp.Interpreter
	rl   *readline.Instance
	seen int // length of output already shown
}

func newREPL(it *interp.Interpreter) (*REPL, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "crepl> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("step"), readline.PcItem("run"), readline.PcItem("frames"),
			readline.PcItem("heap"), readline.PcItem("data"), readline.PcItem("print"),
			readline.PcItem("yaml"), readline.PcItem("out"), readline.PcItem("diag"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, err
	}
	return &REPL{it: it, rl: rl}, nil
}

// loop reads commands until the user quits.
func (r *REPL) loop() {
	defer r.rl.Close()
	for {
		line, err := r.rl.Readline()
		if err != nil { // io.EOF
			break
		}
		if quit := r.execute(strings.Fields(line)); quit {
			break
		}
	}
	println("Good bye!")
}

// execute runs a single command and tells if the session should end.
func (r *REPL) execute(args []string) bool {
	cmd := "step"
	if len(args) > 0 {
		cmd = args[0]
	}
	tracer().Debugf("command %q, args %v", cmd, args)
	switch cmd {
	case "s", "step":
		n := 1
		if len(args) > 1 {
			var err error
			if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
				pterm.Error.Printf("not a step count: %s\n", args[1])
				return false
			}
		}
		r.step(n)
	case "r", "run":
		r.step(-1)
	case "f", "frames":
		showFrames(r.it.Snapshot())
	case "h", "heap":
		showRecords("Heap", r.it.Snapshot().Heap)
	case "d", "data":
		showRecords("Data", r.it.Snapshot().Data)
	case "p", "print":
		if len(args) != 2 {
			pterm.Error.Println("usage: print <name>")
			return false
		}
		if rec, ok := r.it.Snapshot().Find(args[1]); ok {
			pterm.Info.Println(rec.String())
		} else {
			pterm.Error.Printf("no object %s in scope\n", args[1])
		}
	case "y", "yaml":
		y, err := r.it.Snapshot().YAML()
		if err != nil {
			pterm.Error.Println(err.Error())
			return false
		}
		pterm.Println(y)
	case "o", "out":
		pterm.Println(r.it.Output())
	case "diag":
		showDiagnostics(r.it.Diagnostics().All())
	case "q", "quit":
		return true
	default:
		pterm.Error.Printf("unknown command %q\n", cmd)
	}
	return false
}

// step executes n steps, or runs to the end for n < 0.
func (r *REPL) step(n int) {
	if r.it.State() == interp.Terminated {
		pterm.Info.Printf("program has terminated: %s\n", r.it.Halt())
		return
	}
	var err error
	if n < 0 {
		_, err = r.it.Run(0)
	} else {
		for i := 0; i < n && err == nil && r.it.State() != interp.Terminated; i++ {
			err = r.it.Step()
		}
	}
	r.flushOutput()
	showDiagnostics(r.it.Diagnostics().Drain())
	if err != nil && r.it.Halt() != interp.HaltError {
		pterm.Error.Println(err.Error())
	}
	if r.it.State() == interp.Terminated {
		pterm.Info.Printf("program has terminated after %d steps: %s\n", r.it.Steps(), r.it.Halt())
		return
	}
	pterm.Info.Printf("step %d, next at %s\n", r.it.Steps(), r.it.CurrentLocation())
}

func (r *REPL) flushOutput() {
	out := r.it.Output()
	if len(out) > r.seen {
		pterm.Print(out[r.seen:])
		r.seen = len(out)
	}
}
