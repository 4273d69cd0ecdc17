package host

import (
	"fmt"
	"io"
)

// PrintName is the built-in native every run starts with.
const PrintName = "print"

// printNative writes its single argument's display form and a newline.
// It is registered as a builtin, so args[0] is the raw vm.Value and any
// value, natives included, can be printed.
func printNative(w io.Writer) Callable {
	return func(args []any) (any, error) {
		v, err := FromGo(args[0])
		if err != nil {
			return nil, err
		}
		text := v.String()
		log.Debugf("print: %s", text)
		if _, err := fmt.Fprintln(w, text); err != nil {
			return nil, fmt.Errorf("write output: %w", err)
		}
		return nil, nil
	}
}
