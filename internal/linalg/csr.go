// csr.go --  This file is part of goTDSE project.
// Mirzaeva Irina, 2023
//
//	goTDSE is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

package linalg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"

	"golang.org/x/exp/slices"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
)

var ErrBadMatrixFile = errors.New("linalg: not a CSR matrix file")

var csrMagic = [4]byte{'C', 'S', 'R', '1'}

// DenseLimit is the largest dimension for which Factor uses a dense LU.
// Larger systems are solved with BiCGSTAB.
var DenseLimit = 256

// CSR is a complex compressed sparse row matrix. Column indices are sorted
// within each row and an entry that is present in the pattern is kept even
// when its value is zero.
type CSR struct {
	Rows, Cols int
	RowPtr     []int
	ColIdx     []int
	Values     []complex128
}

// Entry is one coordinate of a matrix under construction.
type Entry struct {
	I, J int
	V    complex128
}

// NewCSR assembles a matrix from unordered entries. Duplicate coordinates are
// summed.
func NewCSR(rows, cols int, entries []Entry) *CSR {
	es := slices.Clone(entries)
	slices.SortFunc(es, func(a, b Entry) int {
		if a.I != b.I {
			return a.I - b.I
		}
		return a.J - b.J
	})
	m := &CSR{Rows: rows, Cols: cols, RowPtr: make([]int, rows+1)}
	for k, e := range es {
		if k > 0 && es[k-1].I == e.I && es[k-1].J == e.J {
			m.Values[len(m.Values)-1] += e.V
			continue
		}
		m.ColIdx = append(m.ColIdx, e.J)
		m.Values = append(m.Values, e.V)
		m.RowPtr[e.I+1]++
	}
	for i := 0; i < rows; i++ {
		m.RowPtr[i+1] += m.RowPtr[i]
	}
	return m
}

// Diagonal returns an n×n matrix holding d on its diagonal.
func Diagonal(d []complex128) *CSR {
	es := make([]Entry, len(d))
	for i, v := range d {
		es[i] = Entry{I: i, J: i, V: v}
	}
	return NewCSR(len(d), len(d), es)
}

func (m *CSR) Dim() int { return m.Rows }

func (m *CSR) NNZ() int { return len(m.Values) }

// At returns the entry at (i, j), zero when it is not stored.
func (m *CSR) At(i, j int) complex128 {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	if k, ok := slices.BinarySearch(m.ColIdx[lo:hi], j); ok {
		return m.Values[lo+k]
	}
	return 0
}

// Index returns the storage position of (i, j) or -1.
func (m *CSR) Index(i, j int) int {
	lo, hi := m.RowPtr[i], m.RowPtr[i+1]
	if k, ok := slices.BinarySearch(m.ColIdx[lo:hi], j); ok {
		return lo + k
	}
	return -1
}

// Clone returns a deep copy.
func (m *CSR) Clone() *CSR {
	return &CSR{
		Rows:   m.Rows,
		Cols:   m.Cols,
		RowPtr: slices.Clone(m.RowPtr),
		ColIdx: slices.Clone(m.ColIdx),
		Values: slices.Clone(m.Values),
	}
}

// MulVec computes dst = A x.
func (m *CSR) MulVec(dst, x []complex128) {
	for i := 0; i < m.Rows; i++ {
		var s complex128
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s += m.Values[k] * x[m.ColIdx[k]]
		}
		dst[i] = s
	}
}

// ScaleRows multiplies row i by d[i].
func (m *CSR) ScaleRows(d []complex128) {
	for i := 0; i < m.Rows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			m.Values[k] *= d[i]
		}
	}
}

// NormInf is the maximum absolute row sum.
func (m *CSR) NormInf() float64 {
	var n float64
	for i := 0; i < m.Rows; i++ {
		var s float64
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			s += cmplx.Abs(m.Values[k])
		}
		n = math.Max(n, s)
	}
	return n
}

// ShiftedCopy returns alpha I + beta A. The diagonal must be present in the
// pattern of A.
func (m *CSR) ShiftedCopy(alpha, beta complex128) (*CSR, error) {
	out := m.Clone()
	for i := range out.Values {
		out.Values[i] *= beta
	}
	for i := 0; i < m.Rows; i++ {
		k := out.Index(i, i)
		if k < 0 {
			return nil, fmt.Errorf("%w: row %d has no diagonal entry", ErrShape, i)
		}
		out.Values[k] += alpha
	}
	return out, nil
}

// Dense returns the matrix as a row-major dense slice.
func (m *CSR) Dense() []complex128 {
	d := make([]complex128, m.Rows*m.Cols)
	for i := 0; i < m.Rows; i++ {
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			d[i*m.Cols+m.ColIdx[k]] = m.Values[k]
		}
	}
	return d
}

// Factor prepares solves with (A - sigma I): a dense LU up to DenseLimit rows
// and BiCGSTAB beyond.
func (m *CSR) Factor(sigma complex128) (Solver, error) {
	if m.Rows != m.Cols {
		return nil, ErrShape
	}
	if m.Rows <= DenseLimit {
		d := m.Dense()
		for i := 0; i < m.Rows; i++ {
			d[i*m.Cols+i] -= sigma
		}
		return FactorDense(m.Rows, d)
	}
	return &BiCGSTAB{A: shifted{m, sigma}, Tol: 1e-12, MaxIter: 10 * m.Rows}, nil
}

type shifted struct {
	a     *CSR
	sigma complex128
}

func (s shifted) Dim() int { return s.a.Rows }

func (s shifted) MulVec(dst, x []complex128) {
	s.a.MulVec(dst, x)
	if s.sigma != 0 {
		Axpy(-s.sigma, x, dst)
	}
}

// WriteTo serializes the matrix in the CSR1 binary layout.
func (m *CSR) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	hdr := struct {
		Magic           [4]byte
		Rows, Cols, NNZ int64
	}{csrMagic, int64(m.Rows), int64(m.Cols), int64(len(m.Values))}
	if err := binary.Write(cw, binary.LittleEndian, hdr); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, toInt64(m.RowPtr)); err != nil {
		return cw.n, err
	}
	if err := binary.Write(cw, binary.LittleEndian, toInt64(m.ColIdx)); err != nil {
		return cw.n, err
	}
	err := binary.Write(cw, binary.LittleEndian, m.Values)
	return cw.n, err
}

// Save writes the matrix to path atomically.
func (m *CSR) Save(path string) error {
	return binio.WriteAtomic(path, func(w io.Writer) error {
		_, err := m.WriteTo(w)
		return err
	})
}

// ReadCSR parses a matrix written by WriteTo.
func ReadCSR(r io.Reader) (*CSR, error) {
	var hdr struct {
		Magic           [4]byte
		Rows, Cols, NNZ int64
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMatrixFile, err)
	}
	if hdr.Magic != csrMagic || hdr.Rows < 0 || hdr.Cols < 0 || hdr.NNZ < 0 {
		return nil, ErrBadMatrixFile
	}
	rowPtr := make([]int64, hdr.Rows+1)
	colIdx := make([]int64, hdr.NNZ)
	m := &CSR{Rows: int(hdr.Rows), Cols: int(hdr.Cols), Values: make([]complex128, hdr.NNZ)}
	for _, v := range []any{rowPtr, colIdx, m.Values} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMatrixFile, err)
		}
	}
	m.RowPtr = fromInt64(rowPtr)
	m.ColIdx = fromInt64(colIdx)
	if m.RowPtr[m.Rows] != len(m.Values) {
		return nil, fmt.Errorf("%w: row pointer does not match nnz", ErrBadMatrixFile)
	}
	return m, nil
}

// LoadCSR reads the matrix stored at path.
func LoadCSR(path string) (*CSR, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("linalg: %w", err)
	}
	defer f.Close()
	m, err := ReadCSR(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func toInt64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

func fromInt64(v []int64) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = int(x)
	}
	return out
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
