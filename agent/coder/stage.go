package coder

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strings"

	"github.com/kardolus/minebot/agent/coder/sandbox"
	"golang.org/x/tools/go/ast/astutil"
)

const (
	procedurePackage = "procedure"
	procedureFunc    = "Run"
)

const template = `package procedure

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"%s"
)

var (
	_ = fmt.Sprint
	_ = math.Abs
	_ = sort.Strings
	_ = strconv.Itoa
	_ = strings.TrimSpace
)

func Run(bot *sandbox.Bot, log func(string), vec *sandbox.VecMath) (string, error) {
%s
	return "done", nil
}
`

// printRewrites maps print calls to the fmt function that formats the same
// arguments.
var printRewrites = map[string]string{
	"Print":   "Sprint",
	"Println": "Sprintln",
	"Printf":  "Sprintf",
	"print":   "Sprint",
	"println": "Sprintln",
}

// Stage wraps body in the procedure template, routes printing through log
// and adds an interruption check after every statement and at the top of
// every loop body. Inside function literals the check is bot.Checkpoint(),
// which unwinds with sandbox.ErrInterrupted since the literal cannot return
// the procedure's results.
func Stage(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("empty procedure body")
	}

	src := fmt.Sprintf(template, sandbox.ImportPath, body)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "procedure.go", src, parser.ParseComments)
	if err != nil {
		return "", fmt.Errorf("syntax error: %w", err)
	}

	run := findRun(file)
	if run == nil {
		return "", fmt.Errorf("procedure function missing")
	}

	st := &stager{}
	astutil.Apply(run.Body, st.pre, st.post)

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return "", fmt.Errorf("format staged source: %w", err)
	}
	return buf.String(), nil
}

func findRun(file *ast.File) *ast.FuncDecl {
	for _, d := range file.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Name.Name == procedureFunc && fn.Recv == nil {
			return fn
		}
	}
	return nil
}

// stager tracks how many function literals enclose the node being rewritten.
type stager struct {
	litDepth int
}

func (st *stager) pre(c *astutil.Cursor) bool {
	if _, ok := c.Node().(*ast.FuncLit); ok {
		st.litDepth++
	}
	return true
}

func (st *stager) post(c *astutil.Cursor) bool {
	switch n := c.Node().(type) {
	case *ast.FuncLit:
		st.litDepth--
	case *ast.CallExpr:
		if call, ok := rewritePrint(n); ok {
			c.Replace(call)
		}
	case *ast.BlockStmt:
		n.List = st.withChecks(n.List)
	case *ast.CaseClause:
		n.Body = st.withChecks(n.Body)
	case *ast.CommClause:
		n.Body = st.withChecks(n.Body)
	case *ast.ForStmt:
		n.Body.List = append([]ast.Stmt{st.check()}, n.Body.List...)
	case *ast.RangeStmt:
		n.Body.List = append([]ast.Stmt{st.check()}, n.Body.List...)
	}
	return true
}

func (st *stager) check() ast.Stmt {
	if st.litDepth > 0 {
		return checkpoint()
	}
	return interruptCheck()
}

func rewritePrint(call *ast.CallExpr) (ast.Expr, bool) {
	var name string
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		if fn.Name != "print" && fn.Name != "println" {
			return nil, false
		}
		name = fn.Name
	case *ast.SelectorExpr:
		pkg, ok := fn.X.(*ast.Ident)
		if !ok || pkg.Name != "fmt" {
			return nil, false
		}
		if _, ok := printRewrites[fn.Sel.Name]; !ok || !isUpper(fn.Sel.Name) {
			return nil, false
		}
		name = fn.Sel.Name
	default:
		return nil, false
	}

	formatted := &ast.CallExpr{
		Fun:      &ast.SelectorExpr{X: ast.NewIdent("fmt"), Sel: ast.NewIdent(printRewrites[name])},
		Args:     call.Args,
		Ellipsis: call.Ellipsis,
	}
	return &ast.CallExpr{Fun: ast.NewIdent("log"), Args: []ast.Expr{formatted}}, true
}

func isUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func (st *stager) withChecks(list []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, 2*len(list))
	for _, s := range list {
		out = append(out, s)
		if endsFlow(s) || isCheck(s) {
			continue
		}
		out = append(out, st.check())
	}
	return out
}

func endsFlow(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.ReturnStmt, *ast.BranchStmt, *ast.EmptyStmt:
		return true
	}
	return false
}

func interruptCheck() ast.Stmt {
	return &ast.IfStmt{
		Cond: &ast.CallExpr{Fun: &ast.SelectorExpr{X: ast.NewIdent("bot"), Sel: ast.NewIdent("Interrupted")}},
		Body: &ast.BlockStmt{List: []ast.Stmt{
			&ast.ReturnStmt{Results: []ast.Expr{
				&ast.BasicLit{Kind: token.STRING, Value: `"interrupted"`},
				ast.NewIdent("nil"),
			}},
		}},
	}
}

func checkpoint() ast.Stmt {
	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.SelectorExpr{X: ast.NewIdent("bot"), Sel: ast.NewIdent("Checkpoint")},
	}}
}

func isCheck(s ast.Stmt) bool {
	if es, ok := s.(*ast.ExprStmt); ok {
		return isBotCall(es.X, "Checkpoint")
	}
	is, ok := s.(*ast.IfStmt)
	if !ok || is.Init != nil || is.Else != nil {
		return false
	}
	return isBotCall(is.Cond, "Interrupted")
}

func isBotCall(e ast.Expr, method string) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok || len(call.Args) != 0 {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	x, ok := sel.X.(*ast.Ident)
	return ok && x.Name == "bot" && sel.Sel.Name == method
}
