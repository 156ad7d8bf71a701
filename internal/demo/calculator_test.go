package demo

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/flowmesh-dev/mcp-peer/internal/toolrouter"
)

func TestSumTool_AddsOperands(t *testing.T) {
	result, err := SumTool{}.Call(context.Background(), json.RawMessage(`{"a":5,"b":3}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected IsError")
	}
	if result.Content[0].Text != "8" {
		t.Errorf("text = %q, want 8", result.Content[0].Text)
	}
}

func TestSubTool_SubtractsOperands(t *testing.T) {
	result, err := SubTool{}.Call(context.Background(), json.RawMessage(`{"a":5,"b":3}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Content[0].Text != "2" {
		t.Errorf("text = %q, want 2", result.Content[0].Text)
	}
}

func TestCalculatorTool_DivideByZeroIsApplicationError(t *testing.T) {
	result, err := CalculatorTool{}.Call(context.Background(), json.RawMessage(`{"x":1,"y":0,"operation":"divide"}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError for division by zero")
	}
	if result.Content[0].Text != "Division by zero" {
		t.Errorf("text = %q, want %q", result.Content[0].Text, "Division by zero")
	}
}

func TestCalculatorTool_Divide(t *testing.T) {
	result, err := CalculatorTool{}.Call(context.Background(), json.RawMessage(`{"x":10,"y":2,"operation":"divide"}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected IsError")
	}
	if result.Content[0].Text != "5" {
		t.Errorf("text = %q, want 5", result.Content[0].Text)
	}
}

func TestRegister_AddsAllThreeTools(t *testing.T) {
	router := toolrouter.New()
	if err := Register(router); err != nil {
		t.Fatalf("Register: %v", err)
	}
	defs := router.List()
	if len(defs) != 3 {
		t.Fatalf("len(defs) = %d, want 3", len(defs))
	}
}
