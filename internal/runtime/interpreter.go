package runtime

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"lox-lang/internal/ast"
	"lox-lang/internal/resolver"
	"lox-lang/internal/token"
)

const (
	// DefaultMaxCallDepth bounds nested calls when Options leaves it unset.
	DefaultMaxCallDepth = 4096
	// MaxCallDepthLimit is the highest accepted MaxCallDepth. Deeper Lox
	// recursion would exhaust the goroutine stack before ErrStackOverflow.
	MaxCallDepthLimit = 100000
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Runtime error
// ============================================================

// ErrStackOverflow is the cause of the runtime error raised when calls nest
// deeper than the configured limit.
var ErrStackOverflow = errors.New("stack overflow")

// RuntimeError represents an error during interpretation. Token is the
// token the failing operation is reported at.
type RuntimeError struct {
	Token   token.Token
	Message string
	Err     error // optional cause
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d]", e.Message, e.Token.Line())
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func runtimeErr(tok token.Token, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, args...)}
}

// ============================================================
// Interpreter
// ============================================================

// Options configures an interpreter.
type Options struct {
	// MaxCallDepth is the deepest call nesting allowed. Zero means
	// DefaultMaxCallDepth; values above MaxCallDepthLimit are clamped.
	MaxCallDepth int
	// Now is the clock source for clock(). Nil means time.Now.
	Now func() time.Time
}

// Interpreter walks the AST and executes it.
type Interpreter struct {
	global *Environment
	env    *Environment
	locals resolver.Locals
	output io.Writer
	opts   Options
	depth  int
}

// NewInterpreter creates a new interpreter with the native functions
// registered in its global environment.
func NewInterpreter(output io.Writer, opts Options) *Interpreter {
	switch {
	case opts.MaxCallDepth <= 0:
		opts.MaxCallDepth = DefaultMaxCallDepth
	case opts.MaxCallDepth > MaxCallDepthLimit:
		opts.MaxCallDepth = MaxCallDepthLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	global := NewEnvironment(nil)
	RegisterBuiltins(global, opts.Now)
	return &Interpreter{
		global: global,
		env:    global,
		locals: make(resolver.Locals),
		output: output,
		opts:   opts,
	}
}

// AddLocals merges a resolution table into the interpreter's. Tables from
// earlier units stay valid because their keys are distinct nodes.
func (i *Interpreter) AddLocals(locals resolver.Locals) {
	for expr, depth := range locals {
		i.locals[expr] = depth
	}
}

// Interpret executes statements in order. The first runtime error aborts
// the remaining statements. ctx is checked between statements.
func (i *Interpreter) Interpret(ctx context.Context, stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := i.execStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.PrintStmt:
		val, err := i.evalExpr(s.Expr)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, val.String())
		return resultNone, nil

	case *ast.VarStmt:
		var val Value = NilVal{}
		if s.Init != nil {
			v, err := i.evalExpr(s.Init)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		i.env.Define(s.Name.Lexeme, val)
		return resultNone, nil

	case *ast.ReturnStmt:
		var val Value = NilVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.IfStmt:
		return i.execIf(s)

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.BlockStmt:
		return i.execBlock(s.Stmts, NewEnvironment(i.env))

	case *ast.FunctionStmt:
		i.env.Define(s.Name.Lexeme, &Function{Decl: s, Closure: i.env})
		return resultNone, nil

	case *ast.ClassStmt:
		return i.execClass(s)

	default:
		panic(fmt.Sprintf("runtime: unhandled statement type %T", stmt))
	}
}

func (i *Interpreter) execIf(s *ast.IfStmt) (ExecResult, error) {
	cond, err := i.evalExpr(s.Condition)
	if err != nil {
		return resultNone, err
	}
	if IsTruthy(cond) {
		return i.execStmt(s.Then)
	}
	if s.Else != nil {
		return i.execStmt(s.Else)
	}
	return resultNone, nil
}

func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	for {
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if !IsTruthy(cond) {
			return resultNone, nil
		}
		result, err := i.execStmt(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil
		}
	}
}

// execBlock runs stmts in blockEnv and restores the previous environment on
// every exit path.
func (i *Interpreter) execBlock(stmts []ast.Stmt, blockEnv *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = blockEnv
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execClass(s *ast.ClassStmt) (ExecResult, error) {
	var superclass *Class
	if s.Superclass != nil {
		val, err := i.evalExpr(s.Superclass)
		if err != nil {
			return resultNone, err
		}
		cls, ok := val.(*Class)
		if !ok {
			return resultNone, runtimeErr(s.Superclass.Name, "Superclass must be a class.")
		}
		superclass = cls
	}

	i.env.Define(s.Name.Lexeme, NilVal{})

	methodEnv := i.env
	if superclass != nil {
		methodEnv = NewEnvironment(i.env)
		methodEnv.Define("super", superclass)
	}

	methods := make(map[string]*Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = &Function{
			Decl:          m,
			Closure:       methodEnv,
			IsInitializer: m.Name.Lexeme == "init",
		}
	}

	i.env.Define(s.Name.Lexeme, &Class{Name: s.Name.Lexeme, Superclass: superclass, Methods: methods})
	return resultNone, nil
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return literalValue(e.Value), nil

	case *ast.GroupingExpr:
		return i.evalExpr(e.Expr)

	case *ast.VariableExpr:
		return i.lookupVariable(e.Name, e)

	case *ast.AssignExpr:
		val, err := i.evalExpr(e.Value)
		if err != nil {
			return nil, err
		}
		if distance, ok := i.locals[e]; ok {
			i.env.AssignAt(distance, e.Name.Lexeme, val)
		} else if err := i.global.Assign(e.Name, val); err != nil {
			return nil, err
		}
		return val, nil

	case *ast.UnaryExpr:
		return i.evalUnary(e)

	case *ast.BinaryExpr:
		return i.evalBinary(e)

	case *ast.LogicalExpr:
		return i.evalLogical(e)

	case *ast.CallExpr:
		return i.evalCall(e)

	case *ast.GetExpr:
		obj, err := i.evalExpr(e.Object)
		if err != nil {
			return nil, err
		}
		inst, ok := obj.(*Instance)
		if !ok {
			return nil, runtimeErr(e.Name, "Only instances have properties.")
		}
		return inst.Get(e.Name)

	case *ast.SetExpr:
		obj, err := i.evalExpr(e.Object)
		if err != nil {
			return nil, err
		}
		inst, ok := obj.(*Instance)
		if !ok {
			return nil, runtimeErr(e.Name, "Only instances have fields.")
		}
		val, err := i.evalExpr(e.Value)
		if err != nil {
			return nil, err
		}
		inst.Set(e.Name, val)
		return val, nil

	case *ast.ThisExpr:
		return i.lookupVariable(e.Keyword, e)

	case *ast.SuperExpr:
		return i.evalSuper(e)

	default:
		panic(fmt.Sprintf("runtime: unhandled expression type %T", expr))
	}
}

func literalValue(v any) Value {
	switch lit := v.(type) {
	case nil:
		return NilVal{}
	case bool:
		return BoolVal(lit)
	case float64:
		return NumberVal(lit)
	case string:
		return StringVal(lit)
	default:
		panic(fmt.Sprintf("runtime: unexpected literal %T", v))
	}
}

// lookupVariable reads a resolved local at its distance, or a global.
func (i *Interpreter) lookupVariable(name token.Token, expr ast.Expr) (Value, error) {
	if distance, ok := i.locals[expr]; ok {
		return i.env.GetAt(distance, name.Lexeme), nil
	}
	return i.global.Get(name)
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op.Kind {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.MINUS:
		n, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(e.Op, "Operand must be a number.")
		}
		return -n, nil
	default:
		panic(fmt.Sprintf("runtime: unknown unary operator %s", e.Op.Kind))
	}
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op.Kind {
	case token.EQ:
		return BoolVal(ValuesEqual(left, right)), nil
	case token.NEQ:
		return BoolVal(!ValuesEqual(left, right)), nil
	case token.PLUS:
		if l, ok := left.(NumberVal); ok {
			if r, ok := right.(NumberVal); ok {
				return l + r, nil
			}
		}
		if l, ok := left.(StringVal); ok {
			if r, ok := right.(StringVal); ok {
				return l + r, nil
			}
		}
		return nil, runtimeErr(e.Op, "Operands must be two numbers or two strings.")
	}

	l, lok := left.(NumberVal)
	r, rok := right.(NumberVal)
	if !lok || !rok {
		return nil, runtimeErr(e.Op, "Operands must be numbers.")
	}

	switch e.Op.Kind {
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		// IEEE semantics: x/0 is an infinity, 0/0 is NaN.
		return l / r, nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	default:
		panic(fmt.Sprintf("runtime: unknown binary operator %s", e.Op.Kind))
	}
}

// evalLogical short-circuits and yields the deciding operand itself.
func (i *Interpreter) evalLogical(e *ast.LogicalExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}

	if e.Op.Kind == token.KW_OR {
		if IsTruthy(left) {
			return left, nil
		}
	} else if !IsTruthy(left) {
		return left, nil
	}
	return i.evalExpr(e.Right)
}

func (i *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErr(e.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeErr(e.Paren, "Expected %d arguments but got %d.", fn.Arity(), len(args))
	}

	if i.depth >= i.opts.MaxCallDepth {
		return nil, &RuntimeError{Token: e.Paren, Message: "Stack overflow.", Err: ErrStackOverflow}
	}
	i.depth++
	defer func() { i.depth-- }()

	if glog.V(7) {
		glog.Infof("runtime: call %s (%s) depth %d at line %d", fn, fn.TypeName(), i.depth, e.Paren.Line())
	}
	return fn.Call(i, args)
}

func (i *Interpreter) evalSuper(e *ast.SuperExpr) (Value, error) {
	distance := i.locals[e]
	superclass, _ := i.env.GetAt(distance, "super").(*Class)
	// "this" lives in the scope just inside the one holding "super".
	inst, _ := i.env.GetAt(distance-1, "this").(*Instance)

	method := superclass.FindMethod(e.Method.Lexeme)
	if method == nil {
		return nil, runtimeErr(e.Method, "Undefined property '%s'.", e.Method.Lexeme)
	}
	return method.Bind(inst), nil
}
