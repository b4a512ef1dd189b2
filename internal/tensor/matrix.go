package tensor

import "fmt"

// Matrix is a dense row-major 2-D view over a flat float64 buffer. The shape
// and the buffer travel together so shape mismatches are caught at package
// boundaries instead of turning into out-of-range indexing inside kernels.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("matrix dimensions must be positive: %dx%d", rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}, nil
}

// FromSlice wraps an existing flat buffer without copying it. The buffer
// remains caller-owned; writes through the matrix are visible to the caller.
func FromSlice(rows, cols int, data []float64) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("matrix dimensions must be positive: %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("buffer length %d does not match shape %dx%d", len(data), rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

func (m *Matrix) Rows() int { return m.rows }

func (m *Matrix) Cols() int { return m.cols }

// Data exposes the underlying flat buffer in row-major order.
func (m *Matrix) Data() []float64 { return m.data }

func (m *Matrix) At(row, col int) float64 {
	m.boundsCheck(row, col)
	return m.data[row*m.cols+col]
}

func (m *Matrix) Set(row, col int, value float64) {
	m.boundsCheck(row, col)
	m.data[row*m.cols+col] = value
}

// Row returns the backing slice for one row; writes through it mutate the
// matrix.
func (m *Matrix) Row(row int) []float64 {
	if row < 0 || row >= m.rows {
		panic(fmt.Sprintf("row index %d out of range for %dx%d matrix", row, m.rows, m.cols))
	}
	start := row * m.cols
	return m.data[start : start+m.cols]
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Matrix{rows: m.rows, cols: m.cols, data: data}
}

// SameShape reports whether both matrices have identical dimensions.
func (m *Matrix) SameShape(other *Matrix) bool {
	return other != nil && m.rows == other.rows && m.cols == other.cols
}

// ToRows copies the matrix into a fresh [][]float64, one slice per row.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		row := make([]float64, m.cols)
		copy(row, m.Row(i))
		out[i] = row
	}
	return out
}

// FromRows builds a matrix from row slices, which must all share one length.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("at least one row is required")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("rows must not be empty")
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has length %d, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Matrix{rows: len(rows), cols: cols, data: data}, nil
}

func (m *Matrix) boundsCheck(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("index (%d,%d) out of range for %dx%d matrix", row, col, m.rows, m.cols))
	}
}
