package calculator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalc(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want float64
	}{
		{"add", Input{A: 3, B: 4, Op: "add"}, 7},
		{"add symbol", Input{A: 1.5, B: 2.5, Op: "+"}, 4},
		{"sub", Input{A: 10, B: 3, Op: "sub"}, 7},
		{"sub symbol", Input{A: 3, B: 10, Op: "-"}, -7},
		{"mul", Input{A: -3, B: 4, Op: "mul"}, -12},
		{"mul symbol", Input{A: 100, B: 0, Op: "*"}, 0},
		{"div", Input{A: 10, B: 4, Op: "div"}, 2.5},
		{"div symbol", Input{A: 10, B: -2, Op: "/"}, -5},
		{"unknown op yields zero", Input{A: 5, B: 3, Op: "pow"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Calc(context.Background(), tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Result)
		})
	}
}

func TestCalc_DivisionByZero(t *testing.T) {
	out, err := Calc(context.Background(), Input{A: 1, B: 0, Op: "div"})
	require.NoError(t, err)
	assert.True(t, math.IsInf(out.Result, 1))

	out, err = Calc(context.Background(), Input{A: -1, B: 0, Op: "div"})
	require.NoError(t, err)
	assert.True(t, math.IsInf(out.Result, -1))
}

func TestNewCalculatorTool_Info(t *testing.T) {
	info := NewCalculatorTool().Info()

	assert.Equal(t, "Calculator", info.Name)
	assert.NotEmpty(t, info.Description)
	assert.Equal(t, "object", info.Parameters["type"])
	assert.ElementsMatch(t, []string{"A", "B", "Op"}, info.Parameters["required"])
}
