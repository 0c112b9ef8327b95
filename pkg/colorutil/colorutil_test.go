package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHex(t *testing.T) {
	for in, want := range map[string]string{
		"#ABC":      "#aabbcc",
		" #FF0000 ": "#ff0000",
		"#ff000080": "#ff0000",
		"#12":       "",
		"red":       "",
		"#ggg":      "",
		"":          "",
	} {
		assert.Equal(t, want, NormalizeHex(in), in)
	}
}
