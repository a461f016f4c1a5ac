package lower

import (
	"bytes"
	"strings"
	"testing"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/plan"
	"github.com/moonbitlang/moon/internal/resolve"
)

func TestEvalCondition(t *testing.T) {
	env := CondEnv{Backend: graph.BackendWasmGC, Mode: graph.ModeDebug}
	cases := []struct {
		expr string
		want bool
	}{
		{"wasm-gc", true},
		{"native", false},
		{"not native", true},
		{"(wasm or wasm-gc) and debug", true},
		{"native and release", false},
	}
	for _, c := range cases {
		got, err := Eval(c.expr, env)
		if err != nil {
			t.Fatalf("Eval(%q): %v", c.expr, err)
		}
		if got != c.want {
			t.Errorf("Eval(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestMatchesFilenameSuffix(t *testing.T) {
	env := CondEnv{Backend: graph.BackendNative}
	if !MatchesFilenameSuffix("foo_native", env) {
		t.Errorf("expected foo_native to match native backend")
	}
	if MatchesFilenameSuffix("foo_wasm", env) {
		t.Errorf("expected foo_wasm to be excluded on native backend")
	}
	if !MatchesFilenameSuffix("foo", env) {
		t.Errorf("expected unsuffixed file to always match")
	}
}

func TestLowerBuildPackage(t *testing.T) {
	g := graph.New("example.com/app")
	g.Modules["example.com/app"] = &graph.Module{Name: "example.com/app", RootDir: "/src/app"}
	pkg := &graph.Package{
		ID:      "example.com/app",
		Module:  "example.com/app",
		Dir:     "/src/app",
		IsMain:  true,
		Files:   []graph.SourceFile{{Path: "/src/app/main.mbt", Name: "main.mbt", Kind: graph.FileSource}},
	}
	g.Packages[pkg.ID] = pkg
	ig, err := resolve.ValidateAndExpand(g, resolve.DirectDependencyModules(g.Modules["example.com/app"]))
	if err != nil {
		t.Fatalf("ValidateAndExpand: %v", err)
	}

	n := plan.Node{Kind: plan.NodeBuildPackage, Target: graph.BuildTarget{Package: pkg.ID, Kind: graph.TargetSource}}
	l := Layout{Root: "/target", Backend: graph.BackendWasmGC, Mode: graph.ModeDebug}
	tc := Toolchain{Moonc: "moonc"}
	cmd, err := Lower(g, ig, n, l, tc, plan.Options{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if cmd.Program != "moonc" {
		t.Errorf("expected moonc as program, got %q", cmd.Program)
	}
	if len(cmd.Outputs) != 1 || !strings.Contains(cmd.Outputs[0], "example.com/app") {
		t.Errorf("unexpected outputs: %v", cmd.Outputs)
	}
	if len(cmd.Inputs) == 0 || cmd.Inputs[0] != pkg.Files[0].Path {
		t.Errorf("expected source file as first input, got %v", cmd.Inputs)
	}
}

func TestLowerBuildPackageFoldsPrebuildOutputIntoInputs(t *testing.T) {
	g := graph.New("example.com/app")
	g.Modules["example.com/app"] = &graph.Module{Name: "example.com/app", RootDir: "/src/app"}
	pkg := &graph.Package{
		ID:     "example.com/app",
		Module: "example.com/app",
		Dir:    "/src/app",
		IsMain: true,
		Files:  []graph.SourceFile{{Path: "/src/app/main.mbt", Name: "main.mbt", Kind: graph.FileSource}},
		PreBuild: []graph.PreBuildTask{
			{Input: "data.txt", Output: "data.mbt", Command: "embed -i $input -o $output"},
		},
	}
	g.Packages[pkg.ID] = pkg
	ig, err := resolve.ValidateAndExpand(g, resolve.DirectDependencyModules(g.Modules["example.com/app"]))
	if err != nil {
		t.Fatalf("ValidateAndExpand: %v", err)
	}

	n := plan.Node{Kind: plan.NodeBuildPackage, Target: graph.BuildTarget{Package: pkg.ID, Kind: graph.TargetSource}}
	l := Layout{Root: "/target", Backend: graph.BackendWasmGC, Mode: graph.ModeDebug}
	cmd, err := Lower(g, ig, n, l, Toolchain{Moonc: "moonc"}, plan.Options{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	want := l.PrebuildOutputFile(pkg.Dir, "data.mbt")
	found := false
	for _, in := range cmd.Inputs {
		if in == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected prebuild output %q among inputs, got %v", want, cmd.Inputs)
	}
}

func TestLowerLinkBundle(t *testing.T) {
	g := graph.New("example.com/app")
	g.Modules["example.com/app"] = &graph.Module{Name: "example.com/app", RootDir: "/src/app"}
	main := &graph.Package{ID: "example.com/app", Module: "example.com/app", IsMain: true}
	lib := &graph.Package{ID: "example.com/app/lib", Module: "example.com/app"}
	g.Packages[main.ID] = main
	g.Packages[lib.ID] = lib
	ig, err := resolve.ValidateAndExpand(g, resolve.DirectDependencyModules(g.Modules["example.com/app"]))
	if err != nil {
		t.Fatalf("ValidateAndExpand: %v", err)
	}

	n := plan.Node{Kind: plan.NodeLinkBundle, Module: "example.com/app"}
	l := Layout{Root: "/target", Backend: graph.BackendWasmGC, Mode: graph.ModeDebug}
	cmd, err := Lower(g, ig, n, l, Toolchain{Moonc: "moonc"}, plan.Options{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(cmd.Outputs) != 1 || cmd.Outputs[0] != l.BundleCoreFile("example.com/app") {
		t.Errorf("unexpected bundle output: %v", cmd.Outputs)
	}
	if len(cmd.Inputs) != 2 {
		t.Errorf("expected one core input per package in the module, got %v", cmd.Inputs)
	}
}

func TestDryRunStableOrder(t *testing.T) {
	cmds := []Command{
		{Node: plan.Node{Kind: plan.NodeBuildRuntime, Backend: graph.BackendWasmGC}, Program: "cc", Args: []string{"-c"}},
		{Node: plan.Node{Kind: plan.NodeCheck, Target: graph.BuildTarget{Package: "a", Kind: graph.TargetSource}}, Program: "moonc", Args: []string{"check"}},
	}
	var buf bytes.Buffer
	if err := DryRun(&buf, cmds); err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "BuildRuntime:") {
		t.Errorf("expected BuildRuntime sorted first, got %q", lines[0])
	}
}
