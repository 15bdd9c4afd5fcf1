package board

import "fmt"

// Grid dimensions shared by every match.
const (
	Rows    = 5
	Columns = 9
)

// Position is a row/column coordinate on the grid.
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Pos is shorthand for Position{Row: row, Column: column}.
func Pos(row, column int) Position {
	return Position{Row: row, Column: column}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// InBounds reports whether the position lies on the grid.
func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Rows && p.Column >= 0 && p.Column < Columns
}

// ManhattanDistance returns |dRow| + |dColumn|.
func (p Position) ManhattanDistance(other Position) int {
	return abs(p.Row-other.Row) + abs(p.Column-other.Column)
}

// IsNextTo reports 8-neighbour adjacency. A position is not next to itself.
func (p Position) IsNextTo(other Position) bool {
	if p == other {
		return false
	}
	return abs(p.Row-other.Row) <= 1 && abs(p.Column-other.Column) <= 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Cell is a grid square. Occupant holds the card id of the troop standing on it.
type Cell struct {
	Position
	Occupant string
}

// Empty reports whether no troop stands on the cell.
func (c *Cell) Empty() bool {
	return c.Occupant == ""
}

// Grid is the fixed Rows x Columns board of a single match.
type Grid struct {
	cells [Rows][Columns]*Cell
}

// NewGrid builds an empty grid.
func NewGrid() *Grid {
	g := &Grid{}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			g.cells[r][c] = &Cell{Position: Pos(r, c)}
		}
	}
	return g
}

// Cell returns the cell at pos, or nil when pos is off the grid.
func (g *Grid) Cell(pos Position) *Cell {
	if !pos.InBounds() {
		return nil
	}
	return g.cells[pos.Row][pos.Column]
}

// Place puts the troop id on the cell at pos.
func (g *Grid) Place(id string, pos Position) error {
	cell := g.Cell(pos)
	if cell == nil {
		return fmt.Errorf("position %s is off the grid", pos)
	}
	if !cell.Empty() {
		return fmt.Errorf("cell %s is occupied by %s", pos, cell.Occupant)
	}
	cell.Occupant = id
	return nil
}

// Vacate clears the cell at pos if it holds id.
func (g *Grid) Vacate(id string, pos Position) {
	if cell := g.Cell(pos); cell != nil && cell.Occupant == id {
		cell.Occupant = ""
	}
}

// Rect returns the cells of a rows x columns rectangle centred on anchor,
// clamped to the grid. Even dimensions lean toward lower indices.
func (g *Grid) Rect(anchor Position, rows, columns int) []*Cell {
	if rows <= 0 || columns <= 0 {
		return nil
	}
	firstRow := anchor.Row - (rows-1)/2
	lastRow := firstRow + rows - 1
	firstColumn := anchor.Column - (columns-1)/2
	lastColumn := firstColumn + columns - 1

	firstRow = max(firstRow, 0)
	firstColumn = max(firstColumn, 0)
	lastRow = min(lastRow, Rows-1)
	lastColumn = min(lastColumn, Columns-1)

	var out []*Cell
	for r := firstRow; r <= lastRow; r++ {
		for c := firstColumn; c <= lastColumn; c++ {
			out = append(out, g.cells[r][c])
		}
	}
	return out
}

// Neighbours returns the in-bounds 8-neighbour cells of pos.
func (g *Grid) Neighbours(pos Position) []*Cell {
	var out []*Cell
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if cell := g.Cell(Pos(pos.Row+dr, pos.Column+dc)); cell != nil {
				out = append(out, cell)
			}
		}
	}
	return out
}
