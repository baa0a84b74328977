// Command mcint estimates definite integrals by Monte Carlo sampling and
// checks them against closed forms.
//
// Usage:
//
//	mcint estimate1d "x**2" --a 0 --b 1 -n 10000
//	mcint estimate2d "x*y" --ax 0 --bx 1 --cy 0 --dy 1
//	mcint exact "math.sin(x)" --a 0 --b 3.14159
//	mcint serve --listen :8080
package main

import (
	"os"
)

func main() {
	cmd := NewCmdRoot("mcint", os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
