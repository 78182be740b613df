package tensor

import "fmt"

// RowSparse is a row-sparse gradient: only the listed rows of a 2-D
// parameter carry values. Embedding lookups produce gradients in this form.
//
// Collective reduction operates on dense buffers, so row-sparse gradients
// are densified before they enter the reduce/clip/accumulate pipeline.
// Duplicate row indices are allowed and sum.
type RowSparse struct {
	Rows   []int  // Row index per values row, may repeat.
	Values *Dense // Shape (len(Rows), cols).
	Cols   int
	NumRow int // Number of rows in the dense parameter.
}

// NewRowSparse builds a row-sparse gradient for a (numRows, cols) parameter.
func NewRowSparse(rows []int, values *Dense, numRows, cols int) (*RowSparse, error) {
	want := Shape{len(rows), cols}
	if !values.Shape().Equal(want) {
		return nil, fmt.Errorf("values shape %v does not match %v", values.Shape(), want)
	}
	for _, r := range rows {
		if r < 0 || r >= numRows {
			return nil, fmt.Errorf("row index %d out of range [0, %d)", r, numRows)
		}
	}
	return &RowSparse{Rows: rows, Values: values, Cols: cols, NumRow: numRows}, nil
}

// ToDense scatters the rows into a zero-filled (NumRow, Cols) tensor,
// summing duplicates.
func (s *RowSparse) ToDense() *Dense {
	out := Zeros(Shape{s.NumRow, s.Cols})
	dst := out.Data()
	src := s.Values.Data()
	for i, row := range s.Rows {
		base := row * s.Cols
		for j := 0; j < s.Cols; j++ {
			dst[base+j] += src[i*s.Cols+j]
		}
	}
	return out
}
