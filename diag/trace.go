package diag

import "github.com/npillmayer/schuko/tracing"

// tracer traces with key 'csim.diag'.
func tracer() tracing.Trace {
	return tracing.Select("csim.diag")
}
