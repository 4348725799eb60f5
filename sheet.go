// Package gridcore implements an in-memory spreadsheet engine: a sparse
// grid of cells holding text, empty content, or an arithmetic formula
// referencing other cells, with dependency tracking, cycle detection, and
// lazy memoized evaluation.
package gridcore

import (
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sheet is a sparse mapping of Position -> owned Cell. It exclusively owns
// every Cell it stores; cells reference each other only by Position, never
// by pointer.
type Sheet struct {
	id     uuid.UUID
	cells  map[Position]*Cell
	log    *zap.Logger
	maxDim Size
}

// SheetOption configures a Sheet at construction time using the functional
// options idiom.
type SheetOption func(*Sheet)

// WithLogger attaches a structured logger used for debug-level tracing of
// cycle checks and invalidation passes. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) SheetOption {
	return func(s *Sheet) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithMaxDimensions overrides the default 16384x16384 addressable
// rectangle. Intended for tests that want to exercise boundary conditions
// with small bounds; the sparse cell map allocates nothing per dimension.
func WithMaxDimensions(rows, cols int) SheetOption {
	return func(s *Sheet) {
		s.maxDim = Size{Rows: rows, Cols: cols}
	}
}

// NewSheet creates an empty Sheet.
func NewSheet(opts ...SheetOption) *Sheet {
	s := &Sheet{
		id:     uuid.New(),
		cells:  make(map[Position]*Cell),
		log:    zap.NewNop(),
		maxDim: Size{Rows: MaxRows, Cols: MaxCols},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the sheet's diagnostic identifier, used to correlate log lines
// across concurrently-held sheets in a single process.
func (s *Sheet) ID() uuid.UUID {
	return s.id
}

func (s *Sheet) isValid(pos Position) bool {
	return pos.Row >= 0 && pos.Row < s.maxDim.Rows && pos.Col >= 0 && pos.Col < s.maxDim.Cols
}

// SetCell parses and installs text at pos. On any error the sheet is left
// completely unchanged.
func (s *Sheet) SetCell(pos Position, text string) error {
	if !s.isValid(pos) {
		return newSheetError(ErrCodeInvalidPosition, "position %v out of range", pos)
	}

	candidate, err := newCellFromText(text)
	if err != nil {
		return newSheetError(ErrCodeFormulaSyntax, "%v", err)
	}

	if cyclePos, found := s.wouldCycle(pos, candidate.referenced); found {
		s.log.Debug("rejected cycle", zap.String("sheet", s.id.String()), zap.String("at", pos.String()), zap.String("via", cyclePos.String()))
		return newSheetError(ErrCodeCircularDependency, "setting %s would create a cycle through %s", pos, cyclePos)
	}

	if old, exists := s.cells[pos]; exists {
		for _, q := range old.referenced {
			if target, ok := s.cells[q]; ok {
				target.removeDependent(pos)
			}
		}
		candidate.dependents = old.dependents
	}

	for _, q := range candidate.referenced {
		target, ok := s.cells[q]
		if !ok {
			target = newEmptyCell()
			s.cells[q] = target
		}
		target.addDependent(pos)
	}

	s.cells[pos] = candidate

	s.invalidateFrom(pos)

	return nil
}

// wouldCycle performs the pre-install cycle check: starting from the
// candidate's own referenced positions, walk the existing, not-yet-mutated
// graph along each visited cell's referenced edges. If the walk ever
// reaches pos itself, installing the candidate would close a cycle.
// Unknown positions are treated as leaves.
//
// This differs from the invalidation walk, which follows dependents and
// runs after installation rather than before.
func (s *Sheet) wouldCycle(pos Position, referenced []Position) (Position, bool) {
	visited := make(map[Position]bool)
	var stack []Position
	stack = append(stack, referenced...)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur == pos {
			return cur, true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true

		cell, ok := s.cells[cur]
		if !ok {
			continue
		}
		stack = append(stack, cell.referenced...)
	}
	return Position{}, false
}

// invalidateFrom clears the cache of pos and, transitively via the
// dependents relation, every downstream cell. Uses a visited set so the
// walk terminates even against a momentarily ill-formed graph.
func (s *Sheet) invalidateFrom(pos Position) {
	visited := make(map[Position]bool)
	var stack []Position
	stack = append(stack, pos)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[cur] {
			continue
		}
		visited[cur] = true

		cell, ok := s.cells[cur]
		if !ok {
			continue
		}
		cell.invalidate()
		for dep := range cell.dependents {
			if !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}

	s.log.Debug("invalidated", zap.String("sheet", s.id.String()), zap.String("from", pos.String()), zap.Int("count", len(visited)))
}

// GetCell returns the cell installed at pos, or (nil, false) if pos has
// never been set or materialized as a placeholder. A materialized
// placeholder is reported as present-but-Empty; callers must not rely on
// distinguishing the two.
func (s *Sheet) GetCell(pos Position) (*Cell, bool) {
	if !s.isValid(pos) {
		return nil, false
	}
	c, ok := s.cells[pos]
	return c, ok
}

// getValue resolves pos through the sheet for use as a formula's lookup
// closure. A Text cell is coerced from its raw content (escape character
// included) rather than its displayed GetValue: referencing an
// escaped-text cell is always a Value error, even though the cell displays
// without the leading quote.
func (s *Sheet) getValue(pos Position) (float64, *FormulaError) {
	cell, ok := s.cells[pos]
	if !ok {
		return 0, nil
	}
	if cell.kind == cellText {
		return coerceToNumber(cell.rawText(), true)
	}
	v := cell.GetValue(s.getValue)
	return coerceToNumber(v, true)
}

// ClearCell removes the cell at pos, if any. Dependents of the cleared cell
// are left dangling; the evaluator's "absent is 0.0" rule handles them, but
// their caches are invalidated first since the cell's apparent value has
// changed to 0.0.
func (s *Sheet) ClearCell(pos Position) error {
	if !s.isValid(pos) {
		return newSheetError(ErrCodeInvalidPosition, "position %v out of range", pos)
	}
	cell, ok := s.cells[pos]
	if !ok {
		return nil
	}

	s.invalidateFrom(pos)

	for _, q := range cell.referenced {
		if target, ok := s.cells[q]; ok {
			target.removeDependent(pos)
		}
	}
	delete(s.cells, pos)
	return nil
}

// GetPrintableSize returns (max_row+1, max_col+1) over all existing cells
// (placeholders included), or (0,0) if the sheet is empty.
func (s *Sheet) GetPrintableSize() Size {
	if len(s.cells) == 0 {
		return Size{}
	}
	maxRow, maxCol := -1, -1
	for pos := range s.cells {
		if pos.Row > maxRow {
			maxRow = pos.Row
		}
		if pos.Col > maxCol {
			maxCol = pos.Col
		}
	}
	return Size{Rows: maxRow + 1, Cols: maxCol + 1}
}

// PrintValues renders the printable rectangle's computed values, row-major,
// tab-separated within a row, every row newline-terminated.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.printRect(w, func(c *Cell) string {
		return formatPrimitive(c.GetValue(s.getValue))
	})
}

// PrintTexts renders the printable rectangle's GetText values with the same
// layout as PrintValues.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.printRect(w, func(c *Cell) string { return c.GetText() })
}

func (s *Sheet) printRect(w io.Writer, render func(*Cell) string) error {
	size := s.GetPrintableSize()
	var sb strings.Builder
	for row := 0; row < size.Rows; row++ {
		for col := 0; col < size.Cols; col++ {
			if col > 0 {
				sb.WriteByte('\t')
			}
			if c, ok := s.cells[Position{Row: row, Col: col}]; ok {
				sb.WriteString(render(c))
			}
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// formatPrimitive renders a computed cell value the way PrintValues needs
// it: doubles via Go's default decimal formatting, strings verbatim,
// FormulaError as its symbolic name.
func formatPrimitive(v Primitive) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	case FormulaError:
		return val.String()
	default:
		return ""
	}
}
