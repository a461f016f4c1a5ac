package lower

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
)

// CondEnv is the set of atoms a conditional-compilation expression may test,
// mirroring filename-suffix predicate extended to manifest
// `targets` boolean expressions: backend, mode, whether the file is being
// considered for a test build, and the host operating system (windows,
// linux, macos), which only counts for the native and llvm backends and is
// true for every other backend.
type CondEnv struct {
	Backend graph.Backend
	Mode    graph.Mode
	Test    bool
}

func (e CondEnv) atom(name string) (bool, error) {
	switch graph.Backend(name) {
	case graph.BackendWasm, graph.BackendWasmGC, graph.BackendJS, graph.BackendNative, graph.BackendLLVM:
		return e.Backend == graph.Backend(name), nil
	}
	switch name {
	case "debug":
		return e.Mode == graph.ModeDebug, nil
	case "release":
		return e.Mode == graph.ModeRelease, nil
	case "test":
		return e.Test, nil
	case "not_test":
		return !e.Test, nil
	case "windows", "linux", "macos":
		if e.Backend != graph.BackendNative && e.Backend != graph.BackendLLVM {
			return true, nil
		}
		goos := name
		if name == "macos" {
			goos = "darwin"
		}
		return runtime.GOOS == goos, nil
	}
	return false, errors.Errorf("unknown conditional-compilation atom %q", name)
}

// Eval parses and evaluates expr (the textual form produced by
// internal/manifest's condExprFromJSON, or a bare filename-suffix atom) in
// env, implementing "and"/"or"/"not" ("not" binds tightest, then "and",
// then "or") and parenthesized grouping.
func Eval(expr string, env CondEnv) (bool, error) {
	toks := tokenize(expr)
	p := &exprParser{toks: toks}
	v, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, errors.Errorf("unexpected trailing tokens in condition %q", expr)
	}
	return v.eval(env)
}

// node is a tiny boolean-expression AST; kept unexported since only Eval is
// a public entry point.
type node struct {
	op       string // "and", "or", "not", "atom"
	atom     string
	children []*node
}

func (n *node) eval(env CondEnv) (bool, error) {
	switch n.op {
	case "atom":
		return env.atom(n.atom)
	case "not":
		v, err := n.children[0].eval(env)
		return !v, err
	case "and":
		for _, c := range n.children {
			v, err := c.eval(env)
			if err != nil {
				return false, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	case "or":
		for _, c := range n.children {
			v, err := c.eval(env)
			if err != nil {
				return false, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Errorf("malformed condition node %q", n.op)
	}
}

func tokenize(expr string) []string {
	expr = strings.ReplaceAll(expr, "(", " ( ")
	expr = strings.ReplaceAll(expr, ")", " ) ")
	return strings.Fields(expr)
}

type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() (*node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	n := &node{op: "or", children: []*node{left}}
	for p.peek() == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, right)
	}
	if len(n.children) == 1 {
		return left, nil
	}
	return n, nil
}

func (p *exprParser) parseAnd() (*node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	n := &node{op: "and", children: []*node{left}}
	for p.peek() == "and" {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, right)
	}
	if len(n.children) == 1 {
		return left, nil
	}
	return n, nil
}

func (p *exprParser) parseUnary() (*node, error) {
	if p.peek() == "not" {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &node{op: "not", children: []*node{inner}}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (*node, error) {
	tok := p.next()
	switch tok {
	case "":
		return nil, errors.New("unexpected end of condition expression")
	case "(":
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, errors.New("missing closing parenthesis in condition expression")
		}
		return n, nil
	case ")", "and", "or":
		return nil, errors.Errorf("unexpected token %q in condition expression", tok)
	default:
		return &node{op: "atom", atom: tok}, nil
	}
}

// MatchesFilenameSuffix implements filename-suffix
// conditional-compilation rule directly: a file whose core name ends in
// `_<backend>` (e.g. `foo_wasm` for `foo_wasm.mbt`) is only a candidate
// under that backend; `foo_wasm_test` does not end in `_wasm` and matches
// every backend.
// This is independent of, and applied before, any `targets` manifest
// expression for the same file.
func MatchesFilenameSuffix(coreName string, env CondEnv) bool {
	for _, b := range graph.AllBackends {
		suffix := "_" + string(b)
		if strings.HasSuffix(coreName, suffix) {
			return env.Backend == b
		}
	}
	if strings.HasSuffix(coreName, "_not_native") {
		return env.Backend != graph.BackendNative
	}
	return true
}
