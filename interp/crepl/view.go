package main

import (
	"fmt"
	"strconv"

	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/interp"
	"github.com/pterm/pterm"
)

func showDiagnostics(ds []*diag.Diagnostic) {
	for _, d := range ds {
		switch d.Kind {
		case diag.Warning:
			pterm.Warning.Println(d.String())
		default:
			pterm.Error.Println(d.String())
		}
	}
}

// showFrames renders the call stack as a tree, bottom frame first.
func showFrames(s *interp.Snapshot) {
	root := pterm.TreeNode{Text: fmt.Sprintf("step %d at %s (%s)", s.Step, s.At, s.State)}
	for _, f := range s.Frames {
		node := pterm.TreeNode{Text: f.Name + " [" + f.Kind + "]"}
		for _, r := range f.Records {
			node.Children = append(node.Children, pterm.TreeNode{Text: recordLine(r)})
		}
		root.Children = append(root.Children, node)
	}
	if err := pterm.DefaultTree.WithRoot(root).Render(); err != nil {
		tracer().Errorf("cannot render frames: %v", err)
	}
}

func recordLine(r interp.Record) string {
	line := fmt.Sprintf("%s %s = %s  @%#x", r.Type, r.Name, r.Value, r.Address)
	if r.Refs > 0 {
		line += fmt.Sprintf("  (refs %d)", r.Refs)
	}
	return line
}

// showRecords renders objects of a memory region as a table.
func showRecords(title string, recs []interp.Record) {
	pterm.DefaultSection.Println(title)
	if len(recs) == 0 {
		pterm.Info.Println("empty")
		return
	}
	data := pterm.TableData{{"Name", "Address", "Size", "Type", "Value", "Refs", "State"}}
	for _, r := range recs {
		state := "live"
		if r.Freed {
			state = "freed"
		}
		data = append(data, []string{
			r.Name, fmt.Sprintf("%#x", r.Address), strconv.Itoa(r.Size),
			r.Type, r.Value, strconv.Itoa(r.Refs), state,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		tracer().Errorf("cannot render table: %v", err)
	}
}

// summary reports how the program ended, together with leaked and dangling
// heap blocks.
func summary(it *interp.Interpreter) {
	mem := it.Memory()
	if mem == nil {
		return
	}
	pterm.Info.Printf("%s after %d steps, exit code %d\n", it.Halt(), it.Steps(), it.ExitCode())
	for _, b := range mem.Leaks() {
		pterm.Warning.Printf("leak: %d bytes at %#x allocated at %s\n", b.Size, b.Addr, b.At)
	}
	for _, b := range mem.Dangling() {
		pterm.Warning.Printf("dangling pointer into block at %#x freed after allocation at %s\n", b.Addr, b.At)
	}
}
