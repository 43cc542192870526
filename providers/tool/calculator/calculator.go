package calculator

import (
	"context"

	"github.com/manifold-ai/manifold/providers/tool"
)

type Input struct {
	A  float64 `json:"A"  jsonschema:"description=First integer operand,required"`
	B  float64 `json:"B"  jsonschema:"description=Second integer operand,required"`
	Op string  `json:"Op" jsonschema:"description=Operation type,enum=add,enum=sub,enum=mul,enum=div,required"`
}

type Output struct {
	Result float64 `json:"result"  jsonschema:"description=The result of the calculation"`
}

// NewCalculatorTool returns a [tool.Tool] for basic arithmetic. The
// computation runs in-process.
func NewCalculatorTool() *tool.Tool[Input, Output] {
	return tool.New(
		"Calculator",
		Calc,
		tool.WithDescription("A simple calculator to perform basic arithmetic operations like addition, subtraction, multiplication, and division."),
	)
}

// Calc applies req.Op to the operands. Each operation also accepts its
// symbol form ("+", "-", "*", "/"). Division by zero yields ±Inf per IEEE
// 754, and an unknown Op yields 0 with no error.
func Calc(ctx context.Context, req Input) (Output, error) {
	var result float64
	switch req.Op {
	case "add", "+":
		result = req.A + req.B
	case "sub", "-":
		result = req.A - req.B
	case "mul", "*":
		result = req.A * req.B
	case "div", "/":
		result = req.A / req.B
	}
	return Output{Result: result}, nil
}
