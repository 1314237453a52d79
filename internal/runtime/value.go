// Package runtime implements the tree-walking interpreter and the Lox value
// system: primitives, functions, classes and instances.
package runtime

import (
	"math"
	"strconv"

	"lox-lang/internal/ast"
	"lox-lang/internal/token"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// ---- Primitive values ----

// NilVal represents nil.
type NilVal struct{}

func (NilVal) TypeName() string { return "nil" }
func (NilVal) String() string   { return "nil" }

// BoolVal represents true or false.
type BoolVal bool

func (v BoolVal) TypeName() string { return "boolean" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. Lox has only double-precision floats.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }

// String prints integral values without a fractional part: 3, 2.5, -0.125.
func (v NumberVal) String() string {
	f := float64(v)
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StringVal represents a string value.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return string(v) }

// ---- Callable values ----

// Callable is implemented by every value that can appear before "(".
type Callable interface {
	Value
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

// NativeFn is the Go signature for native functions.
type NativeFn func(args []Value) (Value, error)

// NativeFunction is a function implemented in Go.
type NativeFunction struct {
	Name   string
	Params int
	Fn     NativeFn
}

func (v *NativeFunction) TypeName() string { return "native function" }
func (v *NativeFunction) String() string   { return "<native fn>" }
func (v *NativeFunction) Arity() int       { return v.Params }

func (v *NativeFunction) Call(_ *Interpreter, args []Value) (Value, error) {
	return v.Fn(args)
}

// Function is a user-defined function or method closed over the environment
// it was declared in.
type Function struct {
	Decl          *ast.FunctionStmt
	Closure       *Environment
	IsInitializer bool
}

func (v *Function) TypeName() string { return "function" }
func (v *Function) String() string   { return "<fn " + v.Decl.Name.Lexeme + ">" }
func (v *Function) Arity() int       { return len(v.Decl.Params) }

// Bind returns a copy of the method whose closure defines "this" as inst.
func (v *Function) Bind(inst *Instance) *Function {
	env := NewEnvironment(v.Closure)
	env.Define("this", inst)
	return &Function{Decl: v.Decl, Closure: env, IsInitializer: v.IsInitializer}
}

func (v *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(v.Closure)
	for idx, param := range v.Decl.Params {
		env.Define(param.Lexeme, args[idx])
	}

	result, err := in.execBlock(v.Decl.Body, env)
	if err != nil {
		return nil, err
	}

	// init always yields the instance, even on a bare "return;".
	if v.IsInitializer {
		return v.Closure.GetAt(0, "this"), nil
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NilVal{}, nil
}

// ---- OOP values ----

// Class is a class value. Calling it constructs an instance.
type Class struct {
	Name       string
	Superclass *Class // nil when there is none
	Methods    map[string]*Function
}

func (v *Class) TypeName() string { return "class" }
func (v *Class) String() string   { return v.Name }

// FindMethod looks name up on the class, then up the superclass chain.
func (v *Class) FindMethod(name string) *Function {
	for cls := v; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of init, or zero when the class has none.
func (v *Class) Arity() int {
	if init := v.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

func (v *Class) Call(in *Interpreter, args []Value) (Value, error) {
	inst := NewInstance(v)
	if init := v.FindMethod("init"); init != nil {
		if _, err := init.Bind(inst).Call(in, args); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Instance is an object created by calling a class.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

// NewInstance creates an instance of cls with no fields.
func NewInstance(cls *Class) *Instance {
	return &Instance{Class: cls, Fields: make(map[string]Value)}
}

func (v *Instance) TypeName() string { return "instance" }
func (v *Instance) String() string   { return v.Class.Name + " instance" }

// Get reads a property. Fields shadow methods; methods come back bound.
func (v *Instance) Get(name token.Token) (Value, error) {
	if val, ok := v.Fields[name.Lexeme]; ok {
		return val, nil
	}
	if method := v.Class.FindMethod(name.Lexeme); method != nil {
		return method.Bind(v), nil
	}
	return nil, runtimeErr(name, "Undefined property '%s'.", name.Lexeme)
}

// Set creates or overwrites a field.
func (v *Instance) Set(name token.Token, val Value) {
	v.Fields[name.Lexeme] = val
}

// ---- Truthiness and equality ----

// IsTruthy reports Lox truthiness: nil and false are falsy, all else truthy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NilVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ValuesEqual is Lox ==. Values of different types are never equal;
// functions, classes and instances compare by identity.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case NumberVal:
		bv, ok := b.(NumberVal)
		return ok && float64(av) == float64(bv)
	case StringVal:
		bv, ok := b.(StringVal)
		return ok && av == bv
	case BoolVal:
		bv, ok := b.(BoolVal)
		return ok && av == bv
	case NilVal:
		_, ok := b.(NilVal)
		return ok
	}
	return a == b
}
