package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	lua "github.com/Shopify/go-lua"
)

// EvalMinutes resolves a duration configuration value expressed either as a
// plain number of minutes or as a simple arithmetic expression ("24*60").
// Expression support keeps operator-facing configuration readable for values
// like a full-day session window.
func EvalMinutes(expr string) (int, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return 0, fmt.Errorf("duration expression is required")
	}

	if minutes, err := strconv.Atoi(trimmed); err == nil {
		if minutes <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %d", minutes)
		}
		return minutes, nil
	}

	if err := validateArithmetic(trimmed); err != nil {
		return 0, err
	}

	state := lua.NewState()
	if err := lua.DoString(state, "return "+trimmed); err != nil {
		return 0, fmt.Errorf("evaluate duration expression %q: %w", trimmed, err)
	}
	value, ok := state.ToNumber(-1)
	if !ok {
		return 0, fmt.Errorf("duration expression %q is not numeric", trimmed)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("duration expression %q is not finite", trimmed)
	}
	minutes := int(value)
	if float64(minutes) != value {
		return 0, fmt.Errorf("duration expression %q is not a whole number of minutes", trimmed)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %d", minutes)
	}
	return minutes, nil
}

// validateArithmetic restricts expressions to digits, whitespace, parentheses,
// and basic operators before handing them to the interpreter.
func validateArithmetic(expr string) error {
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '(' || r == ')' || r == ' ' || r == '\t' || r == '.':
		default:
			return fmt.Errorf("duration expression contains unsupported character %q", r)
		}
	}
	return nil
}
