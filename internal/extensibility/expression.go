package extensibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/comalice/pumpchart/internal/safety"
)

var (
	// ErrBadExpression is returned for a watch expression that does not parse.
	ErrBadExpression = errors.New("bad watch expression")
	// ErrUnknownSignal is returned when an expression names an unpublished signal.
	ErrUnknownSignal = errors.New("unknown signal")
)

// Expression is a comparison of one published signal against a constant,
// written "signal op value", e.g. "infusion.currentSystemMode != 5".
// Booleans are published as 0 and 1; true and false are accepted as values.
type Expression struct {
	Signal string
	Op     string
	Value  int64
	src    string
}

// ParseExpression parses "signal op value". Op is one of ==, !=, <, <=,
// > or >=.
func ParseExpression(s string) (Expression, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Expression{}, fmt.Errorf("%w: %q: want \"signal op value\"", ErrBadExpression, s)
	}
	key, op, valStr := parts[0], parts[1], parts[2]

	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
	default:
		return Expression{}, fmt.Errorf("%w: %q: unknown operator %q", ErrBadExpression, s, op)
	}

	var v int64
	switch valStr {
	case "true":
		v = 1
	case "false":
		v = 0
	default:
		n, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %q: %w", ErrBadExpression, s, err)
		}
		v = n
	}

	return Expression{Signal: key, Op: op, Value: v, src: strings.Join(parts, " ")}, nil
}

// Eval evaluates the expression against published signal values.
func (e Expression) Eval(values map[string]int64) (bool, error) {
	v, ok := values[e.Signal]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSignal, e.Signal)
	}

	switch e.Op {
	case "==":
		return v == e.Value, nil
	case "!=":
		return v != e.Value, nil
	case "<":
		return v < e.Value, nil
	case "<=":
		return v <= e.Value, nil
	case ">":
		return v > e.Value, nil
	case ">=":
		return v >= e.Value, nil
	}
	return false, fmt.Errorf("%w: operator %q", ErrBadExpression, e.Op)
}

func (e Expression) String() string {
	return e.src
}

// WatchProperty turns a watch expression into a safety property that must
// hold after every cycle.
func WatchProperty(s string) (safety.Property, error) {
	e, err := ParseExpression(s)
	if err != nil {
		return safety.Property{}, err
	}

	return safety.Property{
		Name:        "watch: " + e.String(),
		Description: "scenario watch expression",
		Check: func(_ *safety.Monitor, sample *safety.Sample) string {
			ok, err := e.Eval(sample.Signals)
			switch {
			case err != nil:
				return err.Error()
			case !ok:
				return fmt.Sprintf("%s is %d", e.Signal, sample.Signals[e.Signal])
			}
			return ""
		},
	}, nil
}
