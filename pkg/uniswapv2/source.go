package uniswapv2

import (
	"bytes"
	_ "embed"
)

//go:embed math.go
var mathSource []byte

// MathSource returns the source of the pricing rules. Implementations that
// fingerprint their own code include it so a change to the shared fee moves
// the fingerprint too.
func MathSource() []byte {
	return bytes.Clone(mathSource)
}
