package interp

import (
	"fmt"

	"github.com/npillmayer/csim"
	"github.com/npillmayer/csim/ast"
	"github.com/npillmayer/csim/ctype"
	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/csim/memory"
	"github.com/npillmayer/csim/runtime"
	"github.com/npillmayer/csim/sema"
	"github.com/npillmayer/schuko/gtrace"
)

// exec is the walker's view of an interpreter. pause suspends the walker
// before a unit of work; it returns errStopped if the walker is to be
// abandoned.
type exec struct {
	*Interpreter
	pause func(csim.Location) error
}

// --- Control flow signals --------------------------------------------------

type breakSignal struct{}

func (breakSignal) Error() string { return "break" }

type continueSignal struct{}

func (continueSignal) Error() string { return "continue" }

type returnSignal struct {
	v     value
	valid bool // return carries a value
	at    csim.Location
}

func (returnSignal) Error() string { return "return" }

func isJump(err error) bool {
	switch err.(type) {
	case breakSignal, continueSignal, returnSignal:
		return true
	}
	return false
}

// loopControl interprets the outcome of a loop body: exit tells if the loop
// is left, err is passed on to the enclosing construct.
func loopControl(err error) (exit bool, rest error) {
	switch err.(type) {
	case nil, continueSignal:
		return false, nil
	case breakSignal:
		return true, nil
	}
	return true, err
}

// --- Program ---------------------------------------------------------------

// program executes the top-level declarations and then calls main, if
// present.
func (x *exec) program() error {
	for _, d := range x.tu.Decls {
		if decl, ok := d.(*ast.Declaration); ok {
			if err := x.declaration(decl); err != nil {
				return err
			}
		}
	}
	main := x.res.Functions["main"]
	if main == nil || main.Def == nil {
		tracer().Infof("no function main, program ends after global declarations")
		return nil
	}
	if x.res.Rejected(main.Def) {
		return diag.Runtimef(diag.Unsupported, main.Def.At, "function main has been rejected")
	}
	v, explicit, err := x.invoke(main, nil, main.Def.At)
	if err != nil {
		return err
	}
	x.exitCode = v.i
	if explicit {
		x.halt = HaltReturned
	}
	gtrace.InterpreterTracer.Infof("main returned %d", v.i)
	return nil
}

// --- Frames ----------------------------------------------------------------

func (x *exec) push(name string, kind runtime.ScopeKind, parent *runtime.Scope,
	at csim.Location) (*runtime.Frame, error) {
	//
	scope := runtime.NewScope(name, kind, parent)
	f, err := x.rt.Stack.Push(name, kind, scope, x.mem.StackMark())
	if err != nil {
		return nil, diag.Runtimef(diag.StackOverflow, at, "call depth limit of %d exceeded", x.cfg.MaxDepth).
			Because(err)
	}
	return f, nil
}

// leave pops frame f, unless err aborts the run. Aborted runs keep their
// frames for inspection.
func (x *exec) leave(f *runtime.Frame, err error) error {
	if err == nil || isJump(err) {
		x.pop(f)
	}
	return err
}

// pop removes the top frame and releases its stack cells, together with the
// references held by pointers stored in them.
func (x *exec) pop(f *runtime.Frame) {
	if top := x.rt.Stack.Current(); top != f {
		panic(fmt.Sprintf("frame %s is not on top of the call stack, %s is", f, top))
	}
	x.rt.Stack.Pop()
	x.mem.StackRelease(f.StackMark)
}

// --- Declarations ----------------------------------------------------------

// declaration allocates and initializes the objects of a declaration.
// Declarations of functions, and items rejected by the analyzer, allocate
// nothing. For a rejected declaration the objects which could be declared
// are allocated without initialization.
func (x *exec) declaration(decl *ast.Declaration) error {
	var objects []*ast.InitDeclarator
	for _, item := range decl.Items {
		if sym := x.res.Decls[item.Declarator]; sym != nil && sym.IsObject() {
			objects = append(objects, item)
		}
	}
	if len(objects) == 0 {
		return nil
	}
	if err := x.pause(decl.At); err != nil {
		return err
	}
	rejected := x.res.Rejected(decl)
	for _, item := range objects {
		if err := x.declare(decl, item, rejected); err != nil {
			return err
		}
	}
	return nil
}

func (x *exec) declare(decl *ast.Declaration, item *ast.InitDeclarator, rejected bool) error {
	d := item.Declarator
	decl0 := x.res.Decls[d]
	scope := x.rt.Stack.Current().Scope
	init := item.Init
	if rejected {
		init = nil
	}
	global := scope.Kind == runtime.GlobalScope
	static := decl.Storage == "static" || decl.Storage == "extern"
	if !global && static {
		if sym, ok := x.statics[decl0]; ok { // allocated by an earlier execution
			return located(scope.Insert(sym), d.At)
		}
	}
	var addr uint64
	var err error
	switch {
	case global || static:
		if init != nil {
			addr, err = x.mem.DataAlloc(decl0.Type.Size())
		} else {
			addr, err = x.mem.BSSAlloc(decl0.Type.Size())
		}
	default:
		addr, err = x.mem.StackAlloc(decl0.Type.Size())
	}
	if err != nil {
		return located(err, d.At)
	}
	sym := runtime.NewSymbol(decl0.Name, decl0.Kind).WithType(decl0.Type)
	sym.Specifiers, sym.At, sym.Address = decl0.Specifiers, d.At, addr
	sym.Initialized = global || static || init != nil
	if err := scope.Insert(sym); err != nil {
		return located(err, d.At)
	}
	if !global && static {
		x.statics[decl0] = sym
	}
	gtrace.InterpreterTracer.Debugf("%s %s at %#x", sym.Name, sym.Type, addr)
	if init == nil {
		return nil
	}
	return x.initialize(addr, sym.Type, init)
}

// initialize writes an initializer to the object of type t at addr.
// Elements without an initializer keep their zero value.
func (x *exec) initialize(addr uint64, t *ctype.Type, init ast.Node) error {
	if list, ok := init.(*ast.Expression); ok && list.Op == ast.OpInitList {
		switch {
		case t.IsArray():
			elem := t.Elem()
			size := uint64(elem.Size())
			for i, e := range list.Operands {
				if err := x.initialize(addr+uint64(i)*size, elem, e); err != nil {
					return err
				}
			}
		case t.IsRecord():
			for i, e := range list.Operands {
				f := t.Record.Fields[i]
				if err := x.initialize(addr+uint64(f.Offset), f.Type, e); err != nil {
					return err
				}
			}
		case len(list.Operands) > 0:
			return x.initialize(addr, t, list.Operands[0])
		}
		return nil
	}
	if lit, ok := init.(*ast.Literal); ok && lit.Lit == ast.StringLiteral && t.IsArray() {
		b := append([]byte(lit.Str), 0)
		if len(b) > t.Size() {
			b = b[:t.Size()]
		}
		return located(x.mem.WriteBytes(addr, b), lit.At)
	}
	v, err := x.rvalue(init)
	if err != nil {
		return err
	}
	_, err = x.store(addr, t, v, init.Loc())
	return located(err, init.Loc())
}

// --- Statements ------------------------------------------------------------

func (x *exec) items(items []ast.Node) error {
	for _, item := range items {
		if err := x.statement(item); err != nil {
			return err
		}
	}
	return nil
}

func (x *exec) statement(n ast.Node) error {
	switch s := n.(type) {
	case *ast.Declaration:
		return x.declaration(s)
	case *ast.Typedef:
		return nil
	}
	if x.res.Rejected(n) {
		tracer().Debugf("skipping rejected %s at %s", n.Kind(), n.Loc())
		return nil
	}
	switch s := n.(type) {
	case *ast.CompoundStatement:
		f, err := x.push("block", runtime.BlockScope, x.rt.Stack.Current().Scope, s.At)
		if err != nil {
			return err
		}
		return x.leave(f, x.items(s.Items))
	case *ast.SelectionStatement:
		if s.IsSwitch() {
			return x.switchStatement(s)
		}
		if err := x.pause(s.At); err != nil {
			return err
		}
		c, err := x.rvalue(s.Cond)
		if err != nil {
			return err
		}
		if c.truth() {
			return x.statement(s.Then)
		} else if s.Else != nil {
			return x.statement(s.Else)
		}
		return nil
	case *ast.IterationStatement:
		return x.iteration(s)
	case *ast.JumpStatement:
		return x.jump(s)
	case *ast.LabeledStatement:
		return x.statement(s.Stmt)
	case *ast.Expression, *ast.Identifier, *ast.Literal:
		if err := x.pause(n.Loc()); err != nil {
			return err
		}
		_, err := x.eval(n)
		return err
	}
	return diag.Runtimef(diag.Unsupported, n.Loc(), "cannot execute %s", n.Kind())
}

func (x *exec) jump(s *ast.JumpStatement) error {
	if err := x.pause(s.At); err != nil {
		return err
	}
	switch s.Keyword {
	case "break":
		return breakSignal{}
	case "continue":
		return continueSignal{}
	}
	if s.Value == nil {
		return returnSignal{at: s.At}
	}
	v, err := x.rvalue(s.Value)
	if err != nil {
		return err
	}
	return returnSignal{v: v, valid: true, at: s.Value.Loc()}
}

// condition pauses and evaluates a loop condition. A missing condition is
// true.
func (x *exec) condition(cond ast.Node, at csim.Location) (bool, error) {
	if cond == nil {
		return true, x.pause(at)
	}
	if err := x.pause(cond.Loc()); err != nil {
		return false, err
	}
	c, err := x.rvalue(cond)
	return c.truth(), err
}

func (x *exec) iteration(s *ast.IterationStatement) error {
	switch s.Keyword {
	case "while":
		for {
			c, err := x.condition(s.Cond, s.At)
			if err != nil || !c {
				return err
			}
			if exit, err := loopControl(x.statement(s.Body)); exit {
				return err
			}
		}
	case "do":
		for {
			if exit, err := loopControl(x.statement(s.Body)); exit {
				return err
			}
			c, err := x.condition(s.Cond, s.At)
			if err != nil || !c {
				return err
			}
		}
	}
	f, err := x.push("for", runtime.BlockScope, x.rt.Stack.Current().Scope, s.At)
	if err != nil {
		return err
	}
	return x.leave(f, x.forLoop(s))
}

func (x *exec) forLoop(s *ast.IterationStatement) error {
	switch init := s.Init.(type) {
	case nil, *ast.Typedef:
	case *ast.Declaration:
		if err := x.declaration(init); err != nil {
			return err
		}
	default:
		if err := x.pause(init.Loc()); err != nil {
			return err
		}
		if _, err := x.eval(init); err != nil {
			return err
		}
	}
	for {
		c, err := x.condition(s.Cond, s.At)
		if err != nil || !c {
			return err
		}
		if exit, err := loopControl(x.statement(s.Body)); exit {
			return err
		}
		if s.Post != nil {
			if err := x.pause(s.Post.Loc()); err != nil {
				return err
			}
			if _, err := x.eval(s.Post); err != nil {
				return err
			}
		}
	}
}

// switchStatement jumps to the case label of the switch body matching the
// controlling value, or to its default label. Labels are recognized among
// the items of the body's outermost block.
func (x *exec) switchStatement(s *ast.SelectionStatement) error {
	if err := x.pause(s.At); err != nil {
		return err
	}
	v, err := x.rvalue(s.Cond)
	if err != nil {
		return err
	}
	body, ok := s.Then.(*ast.CompoundStatement)
	items := []ast.Node{s.Then}
	if ok {
		items = body.Items
	}
	start, dflt := -1, -1
	for i, item := range items {
		for l, ok := item.(*ast.LabeledStatement); ok; l, ok = l.Stmt.(*ast.LabeledStatement) {
			if l.Keyword == "default" {
				dflt = i
			} else if c, ok := x.res.Consts[l]; ok && c == v.i && start < 0 {
				start = i
			}
		}
	}
	if start < 0 {
		start = dflt
	}
	if start < 0 {
		return nil
	}
	f, err := x.push("switch", runtime.BlockScope, x.rt.Stack.Current().Scope, s.At)
	if err != nil {
		return err
	}
	err = x.items(items[start:])
	if _, ok := err.(breakSignal); ok {
		err = nil
	}
	return x.leave(f, err)
}

// --- Function calls --------------------------------------------------------

// invoke calls a user defined function. Arguments are stored into freshly
// allocated parameter cells of a new frame. explicit tells if the function
// executed a return statement.
func (x *exec) invoke(sig *sema.Signature, args []value, at csim.Location) (result value, explicit bool, err error) {
	fn := sig.Def
	f, err := x.push(sig.Name, runtime.FunctionScope, x.rt.Globals, at)
	if err != nil {
		return value{}, false, err
	}
	for i, p := range fn.Params() {
		t := sig.Params[i]
		addr, err := x.mem.StackAlloc(t.Size())
		if err != nil {
			return value{}, false, located(err, at)
		}
		d := p.Items[0].Declarator
		sym := runtime.NewSymbol(d.Name(), runtime.Parameter).WithType(t)
		sym.Specifiers, sym.At, sym.Address, sym.Initialized = p.Specifiers, d.At, addr, true
		if err := f.Scope.Insert(sym); err != nil {
			return value{}, false, located(err, d.At)
		}
		if i < len(args) {
			if _, err := x.store(addr, t, args[i], at); err != nil {
				return value{}, false, located(err, at)
			}
		}
	}
	gtrace.InterpreterTracer.Debugf("calling %s with %d arguments, depth %d", sig.Name, len(args), x.rt.Stack.Depth())
	if err := x.pause(fn.At); err != nil {
		return value{}, false, err
	}
	err = x.items(fn.Body.Items)
	switch sgnl := err.(type) {
	case nil:
		if !sig.Result.IsVoid() && sig.Name != "main" && !x.res.FallsThrough(fn) {
			x.diags.Warn(diag.MissingReturn, fn.At, "function %q ended without returning a value", sig.Name)
		}
		result = value{t: sig.Result}
	case returnSignal:
		explicit = true
		result = value{t: sig.Result}
		if sgnl.valid && !sig.Result.IsVoid() {
			result = x.narrow(sgnl.v, sig.Result, sgnl.at)
		}
	default:
		if isJump(err) {
			err = diag.Runtimef(diag.Unsupported, fn.At, "%s outside of loop in function %q", err, sig.Name)
		}
		return value{}, false, err
	}
	x.pop(f)
	return result, explicit, nil
}

// check tests a pointer before it is dereferenced.
func (x *exec) check(addr uint64, at csim.Location) error {
	if addr == 0 {
		return diag.Runtimef(diag.InvalidDeref, at, "dereference of a null pointer").Because(memory.ErrUnmapped)
	}
	if x.mem.IsMapped(addr) {
		return nil
	}
	if b, ok := x.mem.Block(addr); ok && b.Freed {
		return diag.Runtimef(diag.InvalidDeref, at, "dereference of %#x, inside heap block freed after allocation at %s",
			addr, b.At).Because(memory.ErrUnmapped)
	}
	return diag.Runtimef(diag.InvalidDeref, at, "dereference of unmapped address %#x", addr).
		Because(memory.ErrUnmapped)
}
