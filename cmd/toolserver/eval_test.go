package main

import "testing"

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+2", 4},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"-(2 + 3)", -5},
		{"1.5 * 2", 3},
		{"2 - 3 - 4", -5},
	}
	for _, tt := range tests {
		got, err := evalExpression(tt.expr)
		if err != nil {
			t.Errorf("evalExpression(%q): %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("evalExpression(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	for _, expr := range []string{"", "2+", "1/0", "(2", "abc", "2 2", "5 % 0"} {
		if _, err := evalExpression(expr); err == nil {
			t.Errorf("evalExpression(%q) succeeded, want error", expr)
		}
	}
}

func TestTitleCase(t *testing.T) {
	if got := titleCase("hello WORLD foo"); got != "Hello World Foo" {
		t.Fatalf("titleCase = %q", got)
	}
}
