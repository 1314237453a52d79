// Package resolver performs the static scope pass that runs between parsing
// and interpretation.
//
// It computes, for every local variable reference, how many environments
// separate the use from its declaration, and it reports structural mistakes
// (misplaced return, this outside a class, and so on) before any code runs.
// References it cannot bind are left out of the table; the interpreter looks
// those up in the global environment.
package resolver

import (
	"fmt"

	"github.com/golang/glog"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/token"
)

// Locals maps a variable-reference expression to its scope distance.
// Keys are node pointers, so the table is only meaningful for the tree it
// was computed from.
type Locals map[ast.Expr]int

// FunctionKind tracks what kind of function body is being resolved.
type FunctionKind uint8

const (
	FuncNone FunctionKind = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

var functionKindNames = [...]string{
	FuncNone:        "none",
	FuncFunction:    "function",
	FuncMethod:      "method",
	FuncInitializer: "initializer",
}

func (k FunctionKind) String() string { return functionKindNames[k] }

// ClassKind tracks whether a class body, and which kind, is being resolved.
type ClassKind uint8

const (
	ClassNone ClassKind = iota
	ClassClass
	ClassSubclass
)

// binding is one name declared in a scope.
type binding struct {
	name      token.Token
	ready     bool
	used      bool
	synthetic bool // this / super
}

// scope keeps bindings in declaration order, with an index for lookups.
type scope struct {
	bindings []*binding
	index    map[string]*binding
}

func newScope() *scope {
	return &scope{index: make(map[string]*binding)}
}

func (s *scope) lookup(name string) (*binding, bool) {
	b, ok := s.index[name]
	return b, ok
}

func (s *scope) add(b *binding) {
	s.bindings = append(s.bindings, b)
	s.index[b.name.Lexeme] = b
}

// Resolver walks a parsed file once.
type Resolver struct {
	scopes   []*scope
	locals   Locals
	diags    []diag.Diagnostic
	function FunctionKind
	class    ClassKind
}

// New creates a resolver with an empty table.
func New() *Resolver {
	return &Resolver{locals: make(Locals)}
}

// Resolve is shorthand for New().Resolve(file).
func Resolve(file *ast.File) (Locals, []diag.Diagnostic) {
	return New().Resolve(file)
}

// Resolve runs the pass over file. All diagnostics are collected; the table
// is returned even when errors were found.
func (r *Resolver) Resolve(file *ast.File) (Locals, []diag.Diagnostic) {
	r.resolveStmts(file.Body)
	return r.locals, r.diags
}

// ---- scopes ----

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, newScope())
}

// endScope pops the innermost scope and warns about every binding that was
// never read or assigned.
func (r *Resolver) endScope() {
	top := r.scopes[len(r.scopes)-1]
	r.scopes = r.scopes[:len(r.scopes)-1]

	for _, b := range top.bindings {
		if b.used || b.synthetic {
			continue
		}
		r.diags = append(r.diags, diag.AtToken(diag.Warning, "W3001", b.name,
			"Variable '%s' is declared but never used.", b.name.Lexeme))
	}
}

func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	top := r.scopes[len(r.scopes)-1]
	if _, ok := top.lookup(name.Lexeme); ok {
		r.errorAt(name, "E3001", "Already a variable with this name in this scope.")
		return
	}
	top.add(&binding{name: name})
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	if b, ok := r.scopes[len(r.scopes)-1].lookup(name.Lexeme); ok {
		b.ready = true
	}
}

// defineSynthetic binds this or super in the current scope.
func (r *Resolver) defineSynthetic(name string, at token.Token) {
	tok := at
	tok.Lexeme = name
	r.scopes[len(r.scopes)-1].add(&binding{name: tok, ready: true, synthetic: true})
}

// resolveLocal records the distance from the innermost scope to the one
// declaring name. Unmatched names are globals and get no entry.
func (r *Resolver) resolveLocal(expr ast.Expr, name token.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i].lookup(name.Lexeme); ok {
			depth := len(r.scopes) - 1 - i
			r.locals[expr] = depth
			b.used = true
			if glog.V(5) {
				glog.Infof("resolver: %s at line %d bound at distance %d", name.Lexeme, name.Line(), depth)
			}
			return
		}
	}
	if glog.V(5) {
		glog.Infof("resolver: %s at line %d left global", name.Lexeme, name.Line())
	}
}

func (r *Resolver) errorAt(tok token.Token, code, msg string) {
	r.diags = append(r.diags, diag.AtToken(diag.Error, code, tok, "%s", msg))
}

// ---- statements ----

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		r.beginScope()
		r.resolveStmts(s.Stmts)
		r.endScope()

	case *ast.ClassStmt:
		r.resolveClass(s)

	case *ast.ExprStmt:
		r.resolveExpr(s.Expr)

	case *ast.FunctionStmt:
		// Declared and defined before the body so the function can recurse.
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, FuncFunction)

	case *ast.IfStmt:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *ast.PrintStmt:
		r.resolveExpr(s.Expr)

	case *ast.ReturnStmt:
		if r.function == FuncNone {
			r.errorAt(s.Keyword, "E3010", "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.function == FuncInitializer {
				r.errorAt(s.Keyword, "E3011", "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}

	case *ast.VarStmt:
		r.declare(s.Name)
		if s.Init != nil {
			r.resolveExpr(s.Init)
		}
		r.define(s.Name)

	case *ast.WhileStmt:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Body)

	default:
		panic(fmt.Sprintf("resolver: unexpected statement %T", stmt))
	}
}

func (r *Resolver) resolveClass(s *ast.ClassStmt) {
	enclosing := r.class
	r.class = ClassClass
	defer func() { r.class = enclosing }()

	r.declare(s.Name)
	r.define(s.Name)

	if s.Superclass != nil {
		if s.Superclass.Name.Lexeme == s.Name.Lexeme {
			r.errorAt(s.Superclass.Name, "E3020", "A class can't inherit from itself.")
		}
		r.class = ClassSubclass
		r.resolveExpr(s.Superclass)

		r.beginScope()
		r.defineSynthetic("super", s.Superclass.Name)
		defer r.endScope()
	}

	r.beginScope()
	r.defineSynthetic("this", s.Name)
	for _, method := range s.Methods {
		kind := FuncMethod
		if method.Name.Lexeme == "init" {
			kind = FuncInitializer
		}
		r.resolveFunction(method, kind)
	}
	r.endScope()
}

func (r *Resolver) resolveFunction(fn *ast.FunctionStmt, kind FunctionKind) {
	enclosing := r.function
	r.function = kind
	defer func() { r.function = enclosing }()

	if glog.V(5) {
		glog.Infof("resolver: entering %s %s", kind, fn.Name.Lexeme)
	}

	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

// ---- expressions ----

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.AssignExpr:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name)

	case *ast.BinaryExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.CallExpr:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}

	case *ast.GetExpr:
		r.resolveExpr(e.Object)

	case *ast.GroupingExpr:
		r.resolveExpr(e.Expr)

	case *ast.LiteralExpr:

	case *ast.LogicalExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.SetExpr:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *ast.SuperExpr:
		switch r.class {
		case ClassNone:
			r.errorAt(e.Keyword, "E3030", "Can't use 'super' outside of a class.")
		case ClassClass:
			r.errorAt(e.Keyword, "E3031", "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(e, e.Keyword)

	case *ast.ThisExpr:
		if r.class == ClassNone {
			r.errorAt(e.Keyword, "E3032", "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, e.Keyword)

	case *ast.UnaryExpr:
		r.resolveExpr(e.Right)

	case *ast.VariableExpr:
		if len(r.scopes) > 0 {
			if b, ok := r.scopes[len(r.scopes)-1].lookup(e.Name.Lexeme); ok && !b.ready {
				r.errorAt(e.Name, "E3002", "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Name)

	default:
		panic(fmt.Sprintf("resolver: unexpected expression %T", expr))
	}
}
