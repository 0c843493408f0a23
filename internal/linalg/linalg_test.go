// linalg_test.go --  This file is part of goTDSE project.
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
	"bytes"
	"math/cmplx"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTridiagonal(n int) *Tridiagonal {
	t := NewTridiagonal(n)
	for i := 0; i < n; i++ {
		t.Diag[i] = complex(4+float64(i)*0.1, 0.05*float64(i))
	}
	for i := 0; i < n-1; i++ {
		t.Upper[i] = complex(-1, 0.2)
		t.Lower[i] = complex(-0.9, -0.1)
	}
	return t
}

func residual(a interface{ MulVec(dst, x []complex128) }, sigma complex128, x, b []complex128) float64 {
	ax := make([]complex128, len(x))
	a.MulVec(ax, x)
	for i := range ax {
		ax[i] -= sigma*x[i] + b[i]
	}
	return Norm(ax) / Norm(b)
}

func rhs(n int) []complex128 {
	b := make([]complex128, n)
	for i := range b {
		b[i] = complex(float64(i%3)-1, float64(i%5)*0.2)
	}
	return b
}

func TestTridiagonal(t *testing.T) {
	m := testTridiagonal(4)
	assert.Equal(t, m.Diag[2], m.At(2, 2))
	assert.Equal(t, m.Upper[1], m.At(1, 2))
	assert.Equal(t, m.Lower[1], m.At(2, 1))
	assert.Equal(t, complex128(0), m.At(0, 3))
	assert.False(t, m.Hermitian())

	h := m.ConjTranspose()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, cmplx.Conj(m.At(j, i)), h.At(i, j))
		}
	}

	sigma := complex(0.5, 0.1)
	f, err := m.Factor(sigma)
	require.NoError(t, err)
	b := rhs(4)
	x := make([]complex128, 4)
	require.NoError(t, f.Solve(x, b))
	assert.Less(t, residual(m, sigma, x, b), 1e-13)
}

func TestCSRAndSolvers(t *testing.T) {
	const n = 30
	tri := testTridiagonal(n)
	var es []Entry
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := tri.At(i, j); v != 0 {
				es = append(es, Entry{I: i, J: j, V: v})
			}
		}
	}
	es = append(es, Entry{I: 0, J: n - 1, V: 0.3i}, Entry{I: 0, J: n - 1, V: 0.2})
	m := NewCSR(n, n, es)
	assert.Equal(t, complex(0.2, 0.3), m.At(0, n-1))
	assert.Equal(t, 3*n-2+1, m.NNZ())

	b := rhs(n)
	sigma := complex(-0.3, 0)

	lu, err := m.Factor(sigma)
	require.NoError(t, err)
	xlu := make([]complex128, n)
	require.NoError(t, lu.Solve(xlu, b))
	assert.Less(t, residual(m, sigma, xlu, b), 1e-12)

	it := &BiCGSTAB{A: shifted{m, sigma}, Tol: 1e-13, MaxIter: 500}
	xit := make([]complex128, n)
	require.NoError(t, it.Solve(xit, b))
	for i := range xit {
		assert.InDelta(t, 0, cmplx.Abs(xit[i]-xlu[i]), 1e-9)
	}
}

func TestShiftedCopy(t *testing.T) {
	m := NewCSR(2, 2, []Entry{{0, 0, 1}, {0, 1, 2}, {1, 1, 3}})
	s, err := m.ShiftedCopy(1, -0.5)
	require.NoError(t, err)
	assert.Equal(t, complex128(0.5), s.At(0, 0))
	assert.Equal(t, complex128(-1), s.At(0, 1))
	assert.Equal(t, complex128(-0.5), s.At(1, 1))

	_, err = NewCSR(2, 2, []Entry{{0, 1, 1}}).ShiftedCopy(1, 1)
	assert.ErrorIs(t, err, ErrShape)
}

func TestCSRBinary(t *testing.T) {
	m := NewCSR(3, 3, []Entry{{0, 0, 0}, {0, 1, 1 + 2i}, {1, 0, 1 - 2i}, {2, 2, 0}})
	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)

	back, err := ReadCSR(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, back)

	path := filepath.Join(t.TempDir(), "dipole.dat")
	require.NoError(t, m.Save(path))
	back, err = LoadCSR(path)
	require.NoError(t, err)
	assert.Equal(t, m, back)

	_, err = ReadCSR(bytes.NewReader([]byte("nope, not a matrix at all")))
	assert.ErrorIs(t, err, ErrBadMatrixFile)
}

func TestEigHermitian(t *testing.T) {
	// [[2, i], [-i, 2]] has eigenvalues 1 and 3
	m := []complex128{2, 1i, -1i, 2}
	vals, vecs, err := EigHermitian(2, m)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.InDelta(t, 1, vals[0], 1e-12)
	assert.InDelta(t, 3, vals[1], 1e-12)
	for k, v := range vecs {
		assert.InDelta(t, 1, Norm(v), 1e-12)
		mv := []complex128{m[0]*v[0] + m[1]*v[1], m[2]*v[0] + m[3]*v[1]}
		assert.InDelta(t, 0, cmplx.Abs(mv[0]-complex(vals[k], 0)*v[0]), 1e-12)
		assert.InDelta(t, 0, cmplx.Abs(mv[1]-complex(vals[k], 0)*v[1]), 1e-12)
	}
}

func TestEigGeneral(t *testing.T) {
	// upper triangular, eigenvalues are the diagonal
	m := []complex128{
		1 + 1i, 2, 0.5i,
		0, -2 + 0.5i, 1,
		0, 0, 3,
	}
	vals, vecs, err := EigGeneral(3, m)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	got := append([]complex128(nil), vals...)
	sort.Slice(got, func(i, j int) bool { return real(got[i]) < real(got[j]) })
	want := []complex128{-2 + 0.5i, 1 + 1i, 3}
	for i := range want {
		assert.InDelta(t, 0, cmplx.Abs(got[i]-want[i]), 1e-10)
	}
	for k, v := range vecs {
		for i := 0; i < 3; i++ {
			var s complex128
			for j := 0; j < 3; j++ {
				s += m[i*3+j] * v[j]
			}
			assert.InDelta(t, 0, cmplx.Abs(s-vals[k]*v[i]), 1e-9)
		}
	}
}
