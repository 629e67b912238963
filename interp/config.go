package interp

import (
	"io"

	"github.com/npillmayer/csim/memory"
	"github.com/npillmayer/schuko/gconf"
)

// Config holds the resource limits of an interpreter.
type Config struct {
	Layout      memory.Layout `yaml:"memory"`
	Steps       int           `yaml:"steps"`        // default step budget of Run
	MaxDepth    int           `yaml:"max-depth"`    // maximum number of nested frames
	OutputLimit int           `yaml:"output-limit"` // maximum size of program output in bytes
}

// DefaultConfig returns the configuration used if no other is given.
func DefaultConfig() Config {
	return Config{
		Layout:      memory.DefaultLayout(),
		Steps:       100000,
		MaxDepth:    256,
		OutputLimit: 1 << 20,
	}
}

// Configuration keys read by ConfigFromGlobal.
const (
	KeyStackTop  = "csim.stack.top"
	KeyStackSize = "csim.stack.size"
	KeyHeapBase  = "csim.heap.base"
	KeyHeapSize  = "csim.heap.size"
	KeyDataBase  = "csim.data.base"
	KeyDataSize  = "csim.data.size"
	KeyBSSBase   = "csim.bss.base"
	KeyBSSSize   = "csim.bss.size"
	KeySteps     = "csim.steps"
	KeyMaxDepth  = "csim.maxdepth"
	KeyOutput    = "csim.output"
)

// ConfigFromGlobal overlays the default configuration with values from the
// global application configuration (see package gconf). Keys not set keep
// their default.
func ConfigFromGlobal() Config {
	cfg := DefaultConfig()
	overlay := func(key string, target *uint64) {
		if gconf.IsSet(key) {
			*target = uint64(gconf.GetInt(key))
		}
	}
	overlay(KeyStackTop, &cfg.Layout.StackTop)
	overlay(KeyStackSize, &cfg.Layout.StackSize)
	overlay(KeyHeapBase, &cfg.Layout.HeapBase)
	overlay(KeyHeapSize, &cfg.Layout.HeapSize)
	overlay(KeyDataBase, &cfg.Layout.DataBase)
	overlay(KeyDataSize, &cfg.Layout.DataSize)
	overlay(KeyBSSBase, &cfg.Layout.BSSBase)
	overlay(KeyBSSSize, &cfg.Layout.BSSSize)
	if gconf.IsSet(KeySteps) {
		cfg.Steps = gconf.GetInt(KeySteps)
	}
	if gconf.IsSet(KeyMaxDepth) {
		cfg.MaxDepth = gconf.GetInt(KeyMaxDepth)
	}
	if gconf.IsSet(KeyOutput) {
		cfg.OutputLimit = gconf.GetInt(KeyOutput)
	}
	tracer().Debugf("configuration: %+v", cfg)
	return cfg
}

// Option configures an interpreter.
type Option func(*Interpreter)

// WithConfig sets the configuration of an interpreter.
func WithConfig(cfg Config) Option {
	return func(it *Interpreter) {
		it.cfg = cfg
	}
}

// WithOutput mirrors program output to w, in addition to the output buffer.
func WithOutput(w io.Writer) Option {
	return func(it *Interpreter) {
		it.mirror = w
	}
}

// WithName sets the source name used in syntax errors.
func WithName(name string) Option {
	return func(it *Interpreter) {
		it.name = name
	}
}
