package coder

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
)

type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// Rules is what staged code may reference beyond its own declarations and
// the universe scope.
type Rules struct {
	// Packages maps an import path to its exported symbols.
	Packages map[string]map[string]bool
	// Receivers maps a procedure parameter name to its method names.
	Receivers map[string]map[string]bool
}

// RulesFromExports derives the package whitelist from interpreter exports.
func RulesFromExports(receivers map[string][]string, exports ...interp.Exports) Rules {
	r := Rules{
		Packages:  map[string]map[string]bool{},
		Receivers: map[string]map[string]bool{},
	}
	for _, ex := range exports {
		for key, syms := range ex {
			importPath := path.Dir(key)
			set := r.Packages[importPath]
			if set == nil {
				set = map[string]bool{}
				r.Packages[importPath] = set
			}
			for name := range syms {
				set[name] = true
			}
		}
	}
	for recv, methods := range receivers {
		set := map[string]bool{}
		for _, m := range methods {
			set[m] = true
		}
		r.Receivers[recv] = set
	}
	return r
}

// Lint reports every identifier or selector in src that resolves to nothing
// the procedure is allowed to use.
func Lint(src string, rules Rules) []Diagnostic {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "procedure.go", src, parser.AllErrors)
	if err != nil {
		return syntaxDiagnostics(err)
	}

	var diags []Diagnostic
	seen := map[string]bool{}
	report := func(pos token.Pos, msg string) {
		d := Diagnostic{Line: fset.Position(pos).Line, Message: msg}
		if !seen[d.String()] {
			seen[d.String()] = true
			diags = append(diags, d)
		}
	}

	imports := map[string]string{}
	for _, spec := range file.Imports {
		p, _ := strconv.Unquote(spec.Path.Value)
		if _, ok := rules.Packages[p]; !ok {
			report(spec.Pos(), fmt.Sprintf("import not allowed: %s", p))
			continue
		}
		name := path.Base(p)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		imports[name] = p
	}

	for _, id := range file.Unresolved {
		if types.Universe.Lookup(id.Name) != nil {
			continue
		}
		if _, ok := imports[id.Name]; ok {
			continue
		}
		report(id.Pos(), fmt.Sprintf("undefined reference: %s", id.Name))
	}

	params := receiverObjects(file)

	ast.Inspect(file, func(n ast.Node) bool {
		if g, ok := n.(*ast.GoStmt); ok {
			report(g.Pos(), "goroutines are not allowed")
			return true
		}
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		x, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}

		if x.Obj == nil {
			if p, ok := imports[x.Name]; ok && !rules.Packages[p][sel.Sel.Name] {
				report(sel.Pos(), fmt.Sprintf("undefined reference: %s.%s", x.Name, sel.Sel.Name))
			}
			return true
		}

		recv, ok := params[x.Obj]
		if !ok {
			return true
		}
		methods, ok := rules.Receivers[recv]
		if !ok {
			report(sel.Pos(), fmt.Sprintf("%s is a function; call %s(...) directly", recv, recv))
			return true
		}
		if !methods[sel.Sel.Name] {
			report(sel.Pos(), fmt.Sprintf("undefined reference: %s.%s", x.Name, sel.Sel.Name))
		}
		return true
	})

	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Line < diags[j].Line })
	return diags
}

// receiverObjects maps every object that refers to a procedure parameter to
// that parameter's name: the parameters themselves, locals assigned from
// them, and anything declared with a sandbox type.
func receiverObjects(file *ast.File) map[*ast.Object]string {
	out := map[*ast.Object]string{}
	if run := findRun(file); run != nil {
		for _, field := range run.Type.Params.List {
			for _, n := range field.Names {
				if n.Obj != nil {
					out[n.Obj] = n.Name
				}
			}
		}
	}

	mark := func(names []*ast.Ident, recv string) {
		for _, n := range names {
			if n.Obj != nil && recv != "" {
				out[n.Obj] = recv
			}
		}
	}
	alias := func(lhs []ast.Expr, rhs []ast.Expr) {
		if len(lhs) != len(rhs) {
			return
		}
		for i, r := range rhs {
			src, ok := unparen(r).(*ast.Ident)
			if !ok || src.Obj == nil {
				continue
			}
			dst, ok := lhs[i].(*ast.Ident)
			if !ok || dst.Obj == nil {
				continue
			}
			if recv, ok := out[src.Obj]; ok {
				out[dst.Obj] = recv
			}
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			alias(n.Lhs, n.Rhs)
		case *ast.ValueSpec:
			mark(n.Names, sandboxReceiver(n.Type))
			lhs := make([]ast.Expr, len(n.Names))
			for i, name := range n.Names {
				lhs[i] = name
			}
			alias(lhs, n.Values)
		case *ast.Field:
			mark(n.Names, sandboxReceiver(n.Type))
		}
		return true
	})
	return out
}

// sandboxReceiver names the parameter a declared type stands for.
func sandboxReceiver(t ast.Expr) string {
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	sel, ok := t.(*ast.SelectorExpr)
	if !ok {
		return ""
	}
	if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "sandbox" {
		return ""
	}
	switch sel.Sel.Name {
	case "Bot":
		return "bot"
	case "VecMath":
		return "vec"
	}
	return ""
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

func syntaxDiagnostics(err error) []Diagnostic {
	var list scanner.ErrorList
	if errors.As(err, &list) {
		out := make([]Diagnostic, 0, len(list))
		for _, e := range list {
			out = append(out, Diagnostic{Line: e.Pos.Line, Message: "syntax error: " + e.Msg})
		}
		return out
	}
	return []Diagnostic{{Message: "syntax error: " + err.Error()}}
}

func formatDiagnostics(diags []Diagnostic) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "; ")
}
