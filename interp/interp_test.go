package interp

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/csim/diag"
	"github.com/npillmayer/schuko/gconf"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func parse(t *testing.T, src string, opts ...Option) *Interpreter {
	t.Helper()
	it := New(opts...)
	if _, err := it.Parse(src); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return it
}

func run(t *testing.T, src string, opts ...Option) (*Interpreter, string) {
	t.Helper()
	it := parse(t, src, opts...)
	out, err := it.Run(0)
	if err != nil {
		t.Fatalf("unexpected error: %v, diagnostics: %v", err, it.Diagnostics().All())
	}
	return it, out
}

func valueOf(t *testing.T, it *Interpreter, name string) string {
	t.Helper()
	r, ok := it.Snapshot().Find(name)
	if !ok {
		t.Fatalf("no object %q in snapshot", name)
	}
	return r.Value
}

func TestGlobalArithmetic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it, _ := run(t, "int x=5; int y=3; int sum=x+y;")
	if v := valueOf(t, it, "sum"); v != "8" {
		t.Errorf("expected sum = 8, got %s", v)
	}
	if it.Diagnostics().Len() != 0 {
		t.Errorf("expected no diagnostics, got %v", it.Diagnostics().All())
	}
	if it.Halt() != HaltFinished {
		t.Errorf("expected program to finish, halted with %s", it.Halt())
	}
}

func TestOverflowOnInitialization(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it, _ := run(t, "unsigned char overflow = 256;")
	if v := valueOf(t, it, "overflow"); v != "0" {
		t.Errorf("expected overflow = 0, got %s", v)
	}
	w := it.Diagnostics().WithCode(diag.Overflow)
	if len(w) != 1 || w[0].Loc.Line != 1 {
		t.Errorf("expected exactly one overflow warning in line 1, got %v", w)
	}
}

func TestRecursion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it, out := run(t, `
int factorial(int n) {
	if (n <= 1) return 1;
	return n * factorial(n - 1);
}
int main() {
	printf("%d\n", factorial(5));
	return 0;
}`)
	if out != "120\n" {
		t.Errorf("expected output 120, got %q", out)
	}
	if n := it.Runtime().Stack.FunctionFrames(); n != 0 {
		t.Errorf("expected no function frames after main returned, got %d", n)
	}
	if it.Halt() != HaltReturned || it.ExitCode() != 0 {
		t.Errorf("expected main to return 0, got %s/%d", it.Halt(), it.ExitCode())
	}
}

func TestReferenceCountFollowsScope(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it := parse(t, `int main() {
	int x = 5;
	{
		int *p = &x;
		x = x + 1;
	}
	return x;
}`)
	stepTo(t, it, 5)
	x, ok := it.Snapshot().Find("x")
	if !ok {
		t.Fatalf("no x in scope")
	}
	if n := it.Memory().References(x.Address); n != 1 {
		t.Errorf("expected 1 reference to x inside the block, got %d", n)
	}
	if p, _ := it.Snapshot().Find("p"); p.Indirection != 1 || p.Refs != 0 {
		t.Errorf("unexpected record for p: %+v", p)
	}
	stepTo(t, it, 7)
	if n := it.Memory().References(x.Address); n != 0 {
		t.Errorf("expected no reference to x after the block, got %d", n)
	}
	if _, err := it.Run(0); err != nil {
		t.Fatal(err)
	}
	if it.ExitCode() != 6 {
		t.Errorf("expected exit code 6, got %d", it.ExitCode())
	}
}

// stepTo steps it until the next statement starts in line.
func stepTo(t *testing.T, it *Interpreter, line int) {
	t.Helper()
	for it.CurrentLocation().Line != line {
		if err := it.Step(); err != nil || it.State() == Terminated {
			t.Fatalf("did not reach line %d: %v", line, err)
		}
	}
}

func TestDanglingPointerLeavesLiveCount(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it := parse(t, `int *f() { int l = 3; return &l; }
int main() {
	int *p = f();
	int y = 1;
	int *q = &y;
	p = 0;
	return y;
}`)
	stepTo(t, it, 7)
	y, ok := it.Snapshot().Find("y")
	if !ok {
		t.Fatalf("no y in scope")
	}
	if n := it.Memory().References(y.Address); n != 1 {
		t.Errorf("expected q to be the single reference to y, got %d", n)
	}
}

func TestFreeDropsReferencesHeldByBlock(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it := parse(t, `int x = 1;
int main() {
	int **pp = malloc(8);
	*pp = &x;
	free(pp);
	pp = 0;
	return x;
}`)
	stepTo(t, it, 5)
	x, ok := it.Snapshot().Find("x")
	if !ok {
		t.Fatalf("no x in scope")
	}
	if n := it.Memory().References(x.Address); n != 1 {
		t.Errorf("expected heap slot to reference x, got %d", n)
	}
	stepTo(t, it, 7)
	if n := it.Memory().References(x.Address); n != 0 {
		t.Errorf("expected free to drop the reference held by the block, got %d", n)
	}
	if _, err := it.Run(0); err != nil {
		t.Fatal(err)
	}
}

func TestPrograms(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	cases := []struct {
		name, src, out string
	}{
		{"swap", `
void swap(int *a, int *b) { int t = *a; *a = *b; *b = t; }
int main() { int x = 1; int y = 2; swap(&x, &y); printf("%d %d\n", x, y); return 0; }`,
			"2 1\n"},
		{"array sum", `
int main() {
	int a[5] = { 1, 2, 3, 4, 5 };
	int sum = 0;
	for (int i = 0; i < 5; i++) sum += a[i];
	printf("sum=%d\n", sum);
	return 0;
}`, "sum=15\n"},
		{"struct pointer", `
struct point { int x; int y; };
void move(struct point *p, int d) { p->x = p->x + d; p->y += d; }
int main() {
	struct point pt;
	pt.x = 1;
	pt.y = 2;
	move(&pt, 10);
	printf("%d,%d\n", pt.x, pt.y);
	return 0;
}`, "11,12\n"},
		{"loops", `
int main() {
	int i = 0;
	while (1) { i++; if (i == 3) continue; if (i > 5) break; putchar('0' + i); }
	do { i--; } while (i > 0);
	printf(" %d\n", i);
	return 0;
}`, "1245 0\n"},
		{"switch", `
int classify(int n) {
	switch (n) {
	case 0: return 10;
	case 1:
	case 2: n = n * 2;
	default: n = n + 1; break;
	}
	return n;
}
int main() { printf("%d %d %d\n", classify(0), classify(2), classify(7)); return 0; }`,
			"10 5 8\n"},
		{"strings", `
int main() {
	char s[8] = "hello";
	char *t = "world";
	printf("%s %s %d %c|%5d|%-3d|%05.1f\n", s, t, strlen(t), t[1], 42, 7, 3.14159);
	puts("done");
	return 0;
}`, "hello world 5 o|   42|7  |003.1\ndone\n"},
		{"unsigned wrap", `
int main() {
	unsigned int u = 0;
	u = u - 1;
	printf("%u %x %d\n", u, u, abs(-3));
	return 0;
}`, "4294967295 ffffffff 3\n"},
		{"static local", `
int counter() { static int n; n++; return n; }
int main() { counter(); counter(); printf("%d\n", counter()); return 0; }`,
			"3\n"},
		{"short circuit", `
int hits;
int touch() { hits++; return 1; }
int main() { int a = 0 && touch(); int b = 1 || touch(); printf("%d %d %d\n", a, b, hits); return 0; }`,
			"0 1 0\n"},
	}
	for _, c := range cases {
		it := parse(t, c.src)
		out, err := it.Run(0)
		if err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
			continue
		}
		if out != c.out {
			t.Errorf("%s: expected output %q, got %q", c.name, c.out, out)
		}
	}
}

func TestHeapLeaksAndDanglingPointers(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it, _ := run(t, `
int *kept;
int *gone;
int main() {
	kept = (int *) malloc(sizeof(int) * 4);
	kept[2] = 7;
	gone = (int *) calloc(2, sizeof(int));
	free(gone);
	return kept[2];
}`)
	if it.ExitCode() != 7 {
		t.Errorf("expected exit code 7, got %d", it.ExitCode())
	}
	mem := it.Memory()
	if n := len(mem.Leaks()); n != 1 {
		t.Errorf("expected 1 leaked block, got %d", n)
	}
	if n := len(mem.Dangling()); n != 1 {
		t.Errorf("expected 1 dangling block, got %d", n)
	}
	heap := it.Snapshot().Heap
	if len(heap) != 2 || heap[0].Freed || !heap[1].Freed {
		t.Fatalf("expected a live and a freed heap record, got %v", heap)
	}
	if heap[0].Refs != 1 || heap[0].Region != "heap" {
		t.Errorf("unexpected heap record %+v", heap[0])
	}
	if !strings.Contains(heap[1].Value, "?") {
		t.Errorf("expected freed block to decode as unmapped, got %s", heap[1].Value)
	}
}

func TestUseAfterFree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it := parse(t, `
int main() {
	int *p = (int *) malloc(4);
	free(p);
	return *p;
}`)
	_, err := it.Run(0)
	var rterr *diag.RuntimeError
	if !errors.As(err, &rterr) || rterr.Code != diag.InvalidDeref {
		t.Fatalf("expected invalid dereference, got %v", err)
	}
	if rterr.Loc.Line != 5 {
		t.Errorf("expected error in line 5, got %s", rterr.Loc)
	}
}

func TestDivisionByZeroKeepsOutput(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it := parse(t, `
int main() {
	int z = 0;
	printf("before\n");
	int r = 10 / z;
	printf("after\n");
	return r;
}`)
	out, err := it.Run(0)
	if out != "before\n" {
		t.Errorf("expected partial output, got %q", out)
	}
	var rterr *diag.RuntimeError
	if !errors.As(err, &rterr) || rterr.Code != diag.DivisionByZero {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if it.State() != Terminated || it.Halt() != HaltError {
		t.Errorf("expected termination by error, got %s/%s", it.State(), it.Halt())
	}
	if fatal := it.Diagnostics().Fatal(); fatal == nil || fatal.Code != diag.DivisionByZero {
		t.Errorf("expected fatal diagnostic, got %v", fatal)
	}
	if it.Runtime().Stack.FunctionFrames() != 1 {
		t.Errorf("expected frame of main to be kept for inspection")
	}
	if err := it.Step(); !errors.Is(err, ErrTerminated) {
		t.Errorf("expected stepping a terminated program to fail, got %v", err)
	}
}

func TestSemanticErrorIsIsolated(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it, out := run(t, `
int main() {
	int a = 1;
	a = undefined;
	printf("%d\n", a);
	return 0;
}`)
	if out != "1\n" {
		t.Errorf("expected siblings of rejected statement to run, got %q", out)
	}
	errs := it.Diagnostics().Errors()
	if len(errs) != 1 || errs[0].Code != diag.Undeclared || errs[0].Kind != diag.Semantic {
		t.Errorf("expected one semantic error, got %v", errs)
	}
}

func TestStepping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	it := parse(t, `
int g = 1;
int main() {
	g = g + 1;
	printf("%d\n", g);
	return 0;
}`)
	if it.State() != Unstarted {
		t.Fatalf("expected fresh interpreter to be unstarted")
	}
	if err := it.Step(); err != nil {
		t.Fatal(err)
	}
	if it.State() != Paused || it.Steps() != 1 {
		t.Errorf("expected to pause after step 1, got %s after %d", it.State(), it.Steps())
	}
	if v := valueOf(t, it, "g"); v != "1" {
		t.Errorf("expected g = 1 after its declaration, got %s", v)
	}
	before := it.Snapshot().Fingerprint
	if again := it.Snapshot().Fingerprint; again != before || before == "" {
		t.Errorf("expected stable fingerprint, got %q and %q", before, again)
	}
	it.Step() // function entry
	it.Step() // g = g + 1
	if v := valueOf(t, it, "g"); v != "2" {
		t.Errorf("expected g = 2, got %s", v)
	}
	if it.Snapshot().Fingerprint == before {
		t.Errorf("expected fingerprint to change with state")
	}
	if it.Output() != "" {
		t.Errorf("expected no output yet, got %q", it.Output())
	}
	out, err := it.Run(0)
	if err != nil || out != "2\n" || it.State() != Terminated {
		t.Errorf("expected resumed run to finish, got %q, %v", out, err)
	}
	y, err := it.Snapshot().YAML()
	if err != nil || !strings.Contains(y, "name: g\n") {
		t.Errorf("expected YAML to list g, got %v\n%s", err, y)
	}
}

func TestStepBudget(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	src := `int main() { int i = 0; while (1) { i++; } return 0; }`
	var last string
	for k := 0; k < 2; k++ {
		it := parse(t, src)
		_, err := it.Run(50)
		if !errors.Is(err, ErrBudgetExhausted) {
			t.Fatalf("expected budget to be exhausted, got %v", err)
		}
		if it.Halt() != HaltBudget || it.Steps() != 50 {
			t.Errorf("expected halt after 50 steps, got %s after %d", it.Halt(), it.Steps())
		}
		i := valueOf(t, it, "i")
		if k > 0 && i != last {
			t.Errorf("expected deterministic runs, got i = %s and %s", last, i)
		}
		last = i
	}
}

func TestCallDepthLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	cfg := DefaultConfig()
	cfg.MaxDepth = 8
	it := parse(t, `
int down(int n) { return down(n + 1); }
int main() { return down(0); }`, WithConfig(cfg))
	_, err := it.Run(0)
	var rterr *diag.RuntimeError
	if !errors.As(err, &rterr) || rterr.Code != diag.StackOverflow {
		t.Fatalf("expected stack overflow, got %v", err)
	}
}

func TestOutputMirror(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	var sb strings.Builder
	cfg := DefaultConfig()
	cfg.OutputLimit = 8
	it := parse(t, `int main() { puts("abc"); puts("too long"); return 0; }`,
		WithOutput(&sb), WithConfig(cfg))
	out, err := it.Run(0)
	if out != "abc\n" || sb.String() != "abc\n" {
		t.Errorf("expected mirrored output, got %q and %q", out, sb.String())
	}
	var rterr *diag.RuntimeError
	if !errors.As(err, &rterr) || rterr.Code != diag.OutOfMemory {
		t.Errorf("expected output limit to abort, got %v", err)
	}
}

func TestConfigFromGlobal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "csim.interp")
	defer teardown()
	//
	gconf.Initialize(testconfig.Conf{
		KeySteps:    25,
		KeyMaxDepth: 4,
		KeyHeapSize: 0x2000,
	})
	cfg := ConfigFromGlobal()
	if cfg.Steps != 25 || cfg.MaxDepth != 4 || cfg.Layout.HeapSize != 0x2000 {
		t.Errorf("expected global configuration to be applied, got %+v", cfg)
	}
	if cfg.OutputLimit != DefaultConfig().OutputLimit {
		t.Errorf("expected unset keys to keep their default")
	}
	if err := cfg.Layout.Validate(); err != nil {
		t.Errorf("expected valid layout, got %v", err)
	}
}
