package sema

import (
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/runtime"
)

func (a *Analyzer) statement(n ast.Node) {
	switch s := n.(type) {
	case *ast.CompoundStatement:
		a.scopes.PushNewScope("block", runtime.BlockScope)
		for _, item := range s.Items {
			a.blockItem(item)
		}
		a.scopes.PopScope()
	case *ast.SelectionStatement:
		a.selection(s)
	case *ast.IterationStatement:
		a.iteration(s)
	case *ast.JumpStatement:
		if err := a.jump(s); err != nil {
			a.fail(s, err)
		}
	case *ast.LabeledStatement:
		a.label(s)
	case *ast.Declaration:
		a.declaration(s)
	case *ast.Typedef:
		a.typedef(s)
	case *ast.Expression, *ast.Identifier, *ast.Literal:
		if _, err := a.expr(n); err != nil {
			a.fail(n, err)
		}
	default:
		a.fail(n, diag.Semanticf(diag.Unsupported, n.Loc(), "unexpected %s in statement position", n.Kind()))
	}
}

func (a *Analyzer) condition(n ast.Node) error {
	t, err := a.rvalue(n)
	if err != nil {
		return err
	}
	if !t.IsScalar() {
		return diag.Semanticf(diag.Incompatible, n.Loc(), "condition of type %s is not a scalar", t)
	}
	return nil
}

func (a *Analyzer) selection(s *ast.SelectionStatement) {
	if !s.IsSwitch() {
		if err := a.condition(s.Cond); err != nil {
			a.fail(s, err)
		}
		a.statement(s.Then)
		if s.Else != nil {
			a.statement(s.Else)
		}
		return
	}
	t, err := a.rvalue(s.Cond)
	if err == nil && !t.IsInteger() {
		err = diag.Semanticf(diag.Incompatible, s.Cond.Loc(), "switch on non-integer type %s", t)
	}
	if err != nil {
		a.fail(s, err)
	}
	a.switches++
	a.statement(s.Then)
	a.switches--
}

func (a *Analyzer) iteration(s *ast.IterationStatement) {
	if s.Keyword == "for" {
		a.scopes.PushNewScope("for", runtime.BlockScope)
		defer a.scopes.PopScope()
		switch init := s.Init.(type) {
		case nil:
		case *ast.Declaration:
			a.declaration(init)
			if a.result.Rejected(init) {
				a.result.rejected[s] = true
			}
		case *ast.Typedef:
			a.typedef(init)
		default:
			if _, err := a.expr(init); err != nil {
				a.fail(s, err)
			}
		}
	}
	if s.Cond != nil {
		if err := a.condition(s.Cond); err != nil {
			a.fail(s, err)
		}
	}
	if s.Post != nil {
		if _, err := a.expr(s.Post); err != nil {
			a.fail(s, err)
		}
	}
	a.loops++
	a.statement(s.Body)
	a.loops--
}

func (a *Analyzer) jump(s *ast.JumpStatement) error {
	switch s.Keyword {
	case "break":
		if a.loops == 0 && a.switches == 0 {
			return diag.Semanticf(diag.Unsupported, s.At, "break outside of loop or switch")
		}
	case "continue":
		if a.loops == 0 {
			return diag.Semanticf(diag.Unsupported, s.At, "continue outside of loop")
		}
	case "return":
		if a.fn == nil {
			return diag.Semanticf(diag.Unsupported, s.At, "return outside of function")
		}
		if s.Value == nil {
			if !a.fn.Result.IsVoid() {
				a.diags.Warn(diag.MissingReturn, s.At, "return without a value in non-void function %q", a.fn.Name)
			}
			return nil
		}
		t, err := a.rvalue(s.Value)
		if err != nil {
			return err
		}
		if a.fn.Result.IsVoid() {
			return diag.Semanticf(diag.Incompatible, s.At, "void function %q returns a value", a.fn.Name)
		}
		return a.assignable(a.fn.Result, t, s.Value, "return")
	}
	return nil
}

func (a *Analyzer) label(s *ast.LabeledStatement) {
	if a.switches == 0 {
		a.fail(s, diag.Semanticf(diag.Unsupported, s.At, "%s label outside of switch", s.Keyword))
	} else if s.Keyword == "case" {
		v, err := ctype.EvalConst(a.scope(), s.Value)
		if err != nil {
			a.fail(s, err)
		} else {
			a.result.Consts[s] = v
		}
	}
	a.statement(s.Stmt)
}

// --- Control flow ----------------------------------------------------------

// canFallThrough is a conservative predicate: may control reach the end of
// statement n?
func canFallThrough(n ast.Node) bool {
	switch s := n.(type) {
	case *ast.CompoundStatement:
		reachable := true
		for _, item := range s.Items {
			if _, ok := item.(*ast.LabeledStatement); ok {
				reachable = true
			}
			if reachable && !canFallThrough(item) {
				reachable = false
			}
		}
		return reachable
	case *ast.JumpStatement:
		return false
	case *ast.LabeledStatement:
		return canFallThrough(s.Stmt)
	case *ast.SelectionStatement:
		if s.IsSwitch() {
			return !hasDefault(s.Then) || hasBreak(s.Then) || canFallThrough(s.Then)
		}
		if s.Else == nil {
			return true
		}
		return canFallThrough(s.Then) || canFallThrough(s.Else)
	case *ast.IterationStatement:
		return !isEndless(s) || hasBreak(s.Body)
	}
	return true
}

func isEndless(s *ast.IterationStatement) bool {
	if s.Cond == nil {
		return true
	}
	lit, ok := s.Cond.(*ast.Literal)
	return ok && lit.Lit == ast.IntLiteral && lit.Int != 0
}

// hasBreak checks for a break statement leaving n, ignoring nested loops and
// switches.
func hasBreak(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(node ast.Node) bool {
		switch x := node.(type) {
		case *ast.JumpStatement:
			found = found || x.Keyword == "break"
		case *ast.IterationStatement:
			return node == n
		case *ast.SelectionStatement:
			return node == n || !x.IsSwitch()
		}
		return !found
	})
	return found
}

func hasDefault(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(node ast.Node) bool {
		switch x := node.(type) {
		case *ast.LabeledStatement:
			found = found || x.Keyword == "default"
		case *ast.SelectionStatement:
			return !x.IsSwitch()
		}
		return !found
	})
	return found
}
