package runtime

import "time"

// RegisterBuiltins adds the native functions to the given environment.
// now is the clock source for clock().
func RegisterBuiltins(env *Environment, now func() time.Time) {
	env.Define("clock", &NativeFunction{
		Name:   "clock",
		Params: 0,
		Fn: func(args []Value) (Value, error) {
			return NumberVal(float64(now().UnixNano()) / float64(time.Second)), nil
		},
	})
}
