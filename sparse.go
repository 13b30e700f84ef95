package matlab

import (
	"errors"
	"fmt"
	"sort"
)

// Sparse is the compressed-sparse-column payload of a ClassSparse matrix.
// The nonzeros of column c are Ir[Jc[c]:Jc[c+1]] with values at the same
// positions of Real (and Imag for complex arrays).
type Sparse struct {
	Rows  int
	Cols  int
	NzMax int

	Ir   []int32 // row index of each nonzero
	Jc   []int32 // column boundaries, Cols+1 entries
	Real []float64
	Imag []float64
}

// SparseEntry is one nonzero of a sparse array.
type SparseEntry struct {
	Row  int
	Col  int
	Real float64
	Imag float64
}

// NonZeros returns the number of stored nonzeros.
func (s *Sparse) NonZeros() int {
	if len(s.Jc) == 0 {
		return 0
	}
	return int(s.Jc[len(s.Jc)-1])
}

func (s *Sparse) validate(complex bool) error {
	if len(s.Jc) != s.Cols+1 {
		return fmt.Errorf("column pointer array has %d entries, want %d", len(s.Jc), s.Cols+1)
	}
	if s.Jc[0] != 0 {
		return errors.New("column pointer array must start at 0")
	}
	for c := 0; c < s.Cols; c++ {
		if s.Jc[c+1] < s.Jc[c] {
			return fmt.Errorf("column pointer array decreases at column %d", c)
		}
	}
	nnz := s.NonZeros()
	if len(s.Ir) != nnz || len(s.Real) != nnz {
		return fmt.Errorf("%d nonzeros declared but %d row indices and %d values stored", nnz, len(s.Ir), len(s.Real))
	}
	if s.NzMax < nnz {
		return fmt.Errorf("nzmax %d is below the %d stored nonzeros", s.NzMax, nnz)
	}
	if complex && len(s.Imag) != nnz {
		return fmt.Errorf("%d imaginary values for %d nonzeros", len(s.Imag), nnz)
	}
	if !complex && s.Imag != nil {
		return errors.New("imaginary values on a real sparse array")
	}
	if int64(s.Rows)*int64(s.Cols) < int64(nnz) {
		return fmt.Errorf("%d nonzeros exceed %dx%d", nnz, s.Rows, s.Cols)
	}
	for _, r := range s.Ir {
		if r < 0 || int(r) >= s.Rows {
			return fmt.Errorf("row index %d out of range [0,%d)", r, s.Rows)
		}
	}
	return nil
}

// Entries lists the nonzeros in column-major order by walking the column
// boundaries: nonzero k belongs to column c when Jc[c] <= k < Jc[c+1].
func (s *Sparse) Entries() []SparseEntry {
	nnz := s.NonZeros()
	entries := make([]SparseEntry, 0, nnz)
	for c := 0; c+1 < len(s.Jc); c++ {
		for k := int(s.Jc[c]); k < int(s.Jc[c+1]) && k < len(s.Ir) && k < len(s.Real); k++ {
			e := SparseEntry{Row: int(s.Ir[k]), Col: c, Real: s.Real[k]}
			if k < len(s.Imag) {
				e.Imag = s.Imag[k]
			}
			entries = append(entries, e)
		}
	}
	return entries
}

// NewSparse builds a rows x cols sparse array from its nonzeros. Entries may
// be given in any order; a later entry for the same position replaces an
// earlier one. Entries outside the array bounds are ignored. Imaginary parts
// are kept only when complex is set.
func NewSparse(name string, rows, cols int, entries []SparseEntry, complex bool) *Matrix {
	sorted := make([]SparseEntry, 0, len(entries))
	pos := make(map[[2]int]int, len(entries))
	for _, e := range entries {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			continue
		}
		key := [2]int{e.Row, e.Col}
		if i, ok := pos[key]; ok {
			sorted[i] = e
			continue
		}
		pos[key] = len(sorted)
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Col != sorted[j].Col {
			return sorted[i].Col < sorted[j].Col
		}
		return sorted[i].Row < sorted[j].Row
	})

	sp := &Sparse{
		Rows:  rows,
		Cols:  cols,
		NzMax: max(len(sorted), 1),
		Ir:    make([]int32, len(sorted)),
		Jc:    make([]int32, cols+1),
		Real:  make([]float64, len(sorted)),
	}
	if complex {
		sp.Imag = make([]float64, len(sorted))
	}
	for k, e := range sorted {
		sp.Ir[k] = int32(e.Row)
		sp.Real[k] = e.Real
		if complex {
			sp.Imag[k] = e.Imag
		}
		sp.Jc[e.Col+1]++
	}
	for c := 0; c < cols; c++ {
		sp.Jc[c+1] += sp.Jc[c]
	}
	return &Matrix{
		Name:      name,
		Dimension: []int32{int32(rows), int32(cols)},
		Class:     ClassSparse,
		Complex:   complex,
		Sparse:    sp,
	}
}
