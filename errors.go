package gridcore

import (
	"errors"
	"fmt"
)

// SheetErrorCode enumerates the application-level ways a Sheet mutation can
// be rejected. Unlike FormulaErrorCode, these never become cell content;
// they abort the mutation and leave the sheet unchanged.
type SheetErrorCode int

const (
	// ErrCodeInvalidPosition is returned when an API call receives a
	// Position failing IsValid.
	ErrCodeInvalidPosition SheetErrorCode = iota + 1

	// ErrCodeFormulaSyntax is returned when SetCell's text begins with '='
	// and the remainder does not parse as a formula.
	ErrCodeFormulaSyntax

	// ErrCodeCircularDependency is returned when installing the candidate
	// cell would introduce a cycle in the referenced-cell graph.
	ErrCodeCircularDependency
)

func (c SheetErrorCode) String() string {
	switch c {
	case ErrCodeInvalidPosition:
		return "InvalidPosition"
	case ErrCodeFormulaSyntax:
		return "FormulaSyntax"
	case ErrCodeCircularDependency:
		return "CircularDependency"
	default:
		return "Unknown"
	}
}

// Sentinel errors for errors.Is comparisons. SheetError.Unwrap returns the
// sentinel matching its Code, so callers can write
// errors.Is(err, gridcore.ErrInvalidPosition) without inspecting Code
// directly.
var (
	ErrInvalidPosition    = errors.New("gridcore: invalid position")
	ErrFormulaSyntax      = errors.New("gridcore: formula syntax error")
	ErrCircularDependency = errors.New("gridcore: circular dependency")
)

// SheetError is the error type returned by Sheet's mutating operations.
type SheetError struct {
	Code    SheetErrorCode
	Message string
}

func (e *SheetError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code.String()
}

// Unwrap lets callers use errors.Is against the package-level sentinels.
func (e *SheetError) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidPosition:
		return ErrInvalidPosition
	case ErrCodeFormulaSyntax:
		return ErrFormulaSyntax
	case ErrCodeCircularDependency:
		return ErrCircularDependency
	default:
		return nil
	}
}

func newSheetError(code SheetErrorCode, format string, args ...any) *SheetError {
	return &SheetError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FormulaErrorCode enumerates the value-level error results a formula
// evaluation can produce. Unlike SheetError, a FormulaErrorCode is a normal
// cell value: it propagates through arithmetic rather than aborting a call.
type FormulaErrorCode int

const (
	// FormulaErrorRef marks a reference to an invalid position. Reserved:
	// the grammar implemented here only ever parses valid positions, so
	// this evaluator never produces it.
	FormulaErrorRef FormulaErrorCode = iota + 1

	// FormulaErrorValue marks a textual cell that could not be coerced to
	// a number during formula evaluation.
	FormulaErrorValue

	// FormulaErrorDiv0 marks division by a denominator that evaluates to
	// zero, whether a literal 0 or a reference to a zero or empty cell.
	FormulaErrorDiv0
)

// FormulaError is the value a Cell.GetValue returns when evaluating its
// formula fails. It is a plain value, not a Go error, even though it
// implements the error interface for convenience when logging.
type FormulaError struct {
	Code FormulaErrorCode
}

func (e FormulaError) Error() string {
	return e.String()
}

// String renders the symbolic token spreadsheets conventionally show for
// this error, e.g. "#DIV/0!". Used verbatim by PrintValues.
func (e FormulaError) String() string {
	switch e.Code {
	case FormulaErrorRef:
		return "#REF!"
	case FormulaErrorValue:
		return "#VALUE!"
	case FormulaErrorDiv0:
		return "#DIV/0!"
	default:
		return "#ERROR!"
	}
}
