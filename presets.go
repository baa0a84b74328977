package montecarlo

import "math"

// DefaultSamples is the sample count the CLI and presets use when none is
// given.
const DefaultSamples = 10000

// Preset is a ready-made integration problem. Dim is 1 or 2; C and D are
// the y bounds and are unused in 1D.
type Preset struct {
	Name string  `json:"name"`
	Dim  int     `json:"dim"`
	Expr string  `json:"expr"`
	A    float64 `json:"a"`
	B    float64 `json:"b"`
	C    float64 `json:"c,omitempty"`
	D    float64 `json:"d,omitempty"`
	N    int     `json:"n"`
}

var presets = []Preset{
	{Name: "square", Dim: 1, Expr: "x**2", A: 0, B: 1, N: DefaultSamples},
	{Name: "sine", Dim: 1, Expr: "math.sin(x)", A: 0, B: math.Pi, N: DefaultSamples},
	{Name: "exponential", Dim: 1, Expr: "math.exp(x)", A: 0, B: 1, N: DefaultSamples},
	{Name: "product", Dim: 2, Expr: "x*y", A: 0, B: 1, C: 0, D: 1, N: DefaultSamples},
	{Name: "paraboloid", Dim: 2, Expr: "x**2 + y**2", A: 0, B: 1, C: 0, D: 1, N: DefaultSamples},
}

// Presets returns the built-in examples in display order.
func Presets() []Preset { return append([]Preset(nil), presets...) }

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
