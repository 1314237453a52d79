package runtime

import "lox-lang/internal/token"

// Environment represents a variable scope with a parent chain.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment with an optional parent scope.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Define binds name in this scope, replacing any previous binding.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get looks up a variable by walking the scope chain.
func (e *Environment) Get(name token.Token) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if val, exists := env.values[name.Lexeme]; exists {
			return val, nil
		}
	}
	return nil, runtimeErr(name, "Undefined variable '%s'.", name.Lexeme)
}

// Assign overwrites an existing variable found on the scope chain.
func (e *Environment) Assign(name token.Token, value Value) error {
	for env := e; env != nil; env = env.parent {
		if _, exists := env.values[name.Lexeme]; exists {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return runtimeErr(name, "Undefined variable '%s'.", name.Lexeme)
}

// Ancestor returns the environment distance hops up the chain.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for hop := 0; hop < distance; hop++ {
		env = env.parent
	}
	return env
}

// GetAt reads name from the environment exactly distance hops up. The
// resolver guarantees the binding exists there.
func (e *Environment) GetAt(distance int, name string) Value {
	return e.Ancestor(distance).values[name]
}

// AssignAt writes name in the environment exactly distance hops up.
func (e *Environment) AssignAt(distance int, name string, value Value) {
	e.Ancestor(distance).values[name] = value
}
