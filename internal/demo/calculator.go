// Package demo provides the calculator tool fixtures used as conformance
// tools in this module's end-to-end tests: sum, sub, and a combined
// calculator tool with a divide-by-zero application error path.
package demo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/toolrouter"
)

var numberSchema = map[string]any{"type": "number"}

func twoNumberSchema(first, second string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			first:  numberSchema,
			second: numberSchema,
		},
		"required": []string{first, second},
	}
}

// twoOperandArgs holds the decoded tools/call arguments for sum and sub.
type twoOperandArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// SumTool adds its two arguments.
type SumTool struct{}

func (SumTool) Definition() protocol.ToolDefinition {
	return protocol.ToolDefinition{
		Name:        "sum",
		Description: "Add two numbers",
		InputSchema: twoNumberSchema("a", "b"),
		Annotations: &protocol.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}
}

func (SumTool) Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	var args twoOperandArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", toolrouter.ErrInvalidArguments, err)
	}
	return toolrouter.TextResult(fmt.Sprintf("%v", args.A+args.B)), nil
}

// SubTool subtracts its second argument from its first.
type SubTool struct{}

func (SubTool) Definition() protocol.ToolDefinition {
	return protocol.ToolDefinition{
		Name:        "sub",
		Description: "Subtract b from a",
		InputSchema: twoNumberSchema("a", "b"),
		Annotations: &protocol.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}
}

func (SubTool) Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	var args twoOperandArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", toolrouter.ErrInvalidArguments, err)
	}
	return toolrouter.TextResult(fmt.Sprintf("%v", args.A-args.B)), nil
}

// calculatorArgs is the decoded tools/call arguments for the calculator
// tool: x and y operands combined by the named operation.
type calculatorArgs struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Operation string  `json:"operation"`
}

// CalculatorTool performs add/subtract/multiply/divide on x and y,
// returning an application-level error (IsError, not a JSON-RPC error) for
// division by zero and for an unrecognized operation.
type CalculatorTool struct{}

func (CalculatorTool) Definition() protocol.ToolDefinition {
	return protocol.ToolDefinition{
		Name:        "calculator",
		Description: "Perform add, subtract, multiply, or divide on x and y",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"x":         numberSchema,
				"y":         numberSchema,
				"operation": map[string]any{"type": "string", "enum": []string{"add", "subtract", "multiply", "divide"}},
			},
			"required": []string{"x", "y", "operation"},
		},
	}
}

func (CalculatorTool) Call(ctx context.Context, arguments json.RawMessage) (*protocol.ToolsCallResult, error) {
	var args calculatorArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", toolrouter.ErrInvalidArguments, err)
	}

	switch args.Operation {
	case "add":
		return toolrouter.TextResult(fmt.Sprintf("%v", args.X+args.Y)), nil
	case "subtract":
		return toolrouter.TextResult(fmt.Sprintf("%v", args.X-args.Y)), nil
	case "multiply":
		return toolrouter.TextResult(fmt.Sprintf("%v", args.X*args.Y)), nil
	case "divide":
		if args.Y == 0 {
			return toolrouter.ErrorResult("Division by zero"), nil
		}
		return toolrouter.TextResult(fmt.Sprintf("%v", args.X/args.Y)), nil
	default:
		return toolrouter.ErrorResult(fmt.Sprintf("unknown operation: %s", args.Operation)), nil
	}
}

// Register adds sum, sub, and calculator to router.
func Register(router *toolrouter.Router) error {
	for _, tool := range []toolrouter.Tool{SumTool{}, SubTool{}, CalculatorTool{}} {
		if err := router.Register(tool.Definition().Name, tool); err != nil {
			return err
		}
	}
	return nil
}
