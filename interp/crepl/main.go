package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/npillmayer/csim/interp"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gconf"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
)

var tracerKeys = []string{
	"csim.scanner", "csim.parser", "csim.ctype", "csim.sema", "csim.runtime",
	"csim.memory", "csim.interp", "csim.diag", "csim.crepl",
}

// main() starts C.REPL. It runs a C source file to its end, or, with flag
// -step, lets users step through it interactively and inspect frames, heap
// and static data between steps.
//
func main() {
	initDisplay()
	tlevel := flag.String("trace", "Error", "Trace level [Debug|Info|Error]")
	conffile := flag.String("config", "", "Configuration file (YAML)")
	stepping := flag.Bool("step", false, "Step interactively")
	dump := flag.Bool("yaml", false, "Dump final snapshot as YAML")
	budget := flag.Int("budget", 0, "Step budget (0 = configured default)")
	flag.Parse()
	if flag.NArg() != 1 {
		pterm.Error.Println("usage: crepl [flags] file.c")
		flag.PrintDefaults()
		os.Exit(2)
	}
	conf, err := loadConfig(*conffile)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}
	initTracing(conf, *tlevel)
	tracer().Infof("Trace level is %s", *tlevel)
	//
	filename := flag.Arg(0)
	src, err := os.ReadFile(filename)
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}
	opts := []interp.Option{interp.WithConfig(interp.ConfigFromGlobal()), interp.WithName(filename)}
	if !*stepping {
		opts = append(opts, interp.WithOutput(os.Stdout))
	}
	it := interp.New(opts...)
	if _, err := it.Parse(string(src)); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}
	showDiagnostics(it.Diagnostics().Drain())
	//
	if *stepping {
		repl, err := newREPL(it)
		if err != nil {
			tracer().Errorf(err.Error())
			os.Exit(3)
		}
		pterm.Info.Println("Welcome to C.REPL, quit with <ctrl>D")
		repl.loop()
	} else {
		_, err = it.Run(*budget)
		showDiagnostics(it.Diagnostics().Drain())
		if err != nil && it.Halt() != interp.HaltError {
			pterm.Error.Println(err.Error())
		}
	}
	summary(it)
	it.Snapshot().Dump()
	if *dump {
		y, err := it.Snapshot().YAML()
		if err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(3)
		}
		fmt.Print(y)
	}
	if it.Halt() == interp.HaltError {
		os.Exit(1)
	}
	os.Exit(int(uint8(it.ExitCode())))
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
	pterm.Warning.Prefix = pterm.Prefix{
		Text:  "  Warn",
		Style: pterm.NewStyle(pterm.BgYellow, pterm.FgBlack),
	}
}

// initTracing routes all tracers to the Go logger. Trace levels not given in
// the configuration default to level.
func initTracing(conf yamlConf, level string) {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	for _, key := range append([]string{"root"}, tracerKeys...) {
		if !conf.IsSet("tracelevel." + key) {
			conf["tracelevel."+key] = level
		}
	}
	gconf.Initialize(conf)
	if err := trace2go.ConfigureRoot(conf, "tracelevel", trace2go.ReplaceTracers(true)); err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	tracing.SetTraceSelector(trace2go.Selector())
	gtrace.InterpreterTracer.SetTraceLevel(tracing.TraceLevelFromString(level))
	gtrace.SyntaxTracer.SetTraceLevel(tracing.TraceLevelFromString(level))
}
