// tridiagonal.go --  This file is part of goTDSE project.
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
	"fmt"
	"math"
	"math/cmplx"
)

// Tridiagonal is a square complex band matrix. Lower[i] = A[i+1][i] and
// Upper[i] = A[i][i+1].
type Tridiagonal struct {
	Lower []complex128
	Diag  []complex128
	Upper []complex128
}

// NewTridiagonal allocates a zero n×n band matrix.
func NewTridiagonal(n int) *Tridiagonal {
	m := 0
	if n > 0 {
		m = n - 1
	}
	return &Tridiagonal{
		Lower: make([]complex128, m),
		Diag:  make([]complex128, n),
		Upper: make([]complex128, m),
	}
}

func (t *Tridiagonal) Dim() int { return len(t.Diag) }

// At returns A[i][j].
func (t *Tridiagonal) At(i, j int) complex128 {
	switch j - i {
	case 0:
		return t.Diag[i]
	case 1:
		return t.Upper[i]
	case -1:
		return t.Lower[j]
	}
	return 0
}

// MulVec computes dst = A x.
func (t *Tridiagonal) MulVec(dst, x []complex128) {
	n := len(t.Diag)
	for i := 0; i < n; i++ {
		s := t.Diag[i] * x[i]
		if i > 0 {
			s += t.Lower[i-1] * x[i-1]
		}
		if i < n-1 {
			s += t.Upper[i] * x[i+1]
		}
		dst[i] = s
	}
}

// ConjTranspose returns the Hermitian transpose as a new matrix.
func (t *Tridiagonal) ConjTranspose() *Tridiagonal {
	h := NewTridiagonal(len(t.Diag))
	for i, v := range t.Diag {
		h.Diag[i] = cmplx.Conj(v)
	}
	for i := range t.Lower {
		h.Upper[i] = cmplx.Conj(t.Lower[i])
		h.Lower[i] = cmplx.Conj(t.Upper[i])
	}
	return h
}

// NormInf is the maximum absolute row sum.
func (t *Tridiagonal) NormInf() float64 {
	var m float64
	n := len(t.Diag)
	for i := 0; i < n; i++ {
		s := cmplx.Abs(t.Diag[i])
		if i > 0 {
			s += cmplx.Abs(t.Lower[i-1])
		}
		if i < n-1 {
			s += cmplx.Abs(t.Upper[i])
		}
		m = math.Max(m, s)
	}
	return m
}

// Hermitian reports whether A equals its conjugate transpose exactly.
func (t *Tridiagonal) Hermitian() bool {
	for _, v := range t.Diag {
		if imag(v) != 0 {
			return false
		}
	}
	for i := range t.Lower {
		if t.Lower[i] != cmplx.Conj(t.Upper[i]) {
			return false
		}
	}
	return true
}

// Factor computes the Thomas factorization of (A - sigma I). Zero pivots are
// replaced by a tiny multiple of the matrix norm so that shifts placed exactly
// on an eigenvalue still produce a usable, if large, solution.
func (t *Tridiagonal) Factor(sigma complex128) (Solver, error) {
	n := len(t.Diag)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty operator", ErrShape)
	}
	tiny := complex(1e-14*math.Max(t.NormInf(), 1), 0)
	f := &thomas{
		lower: t.Lower,
		piv:   make([]complex128, n),
		mult:  make([]complex128, n),
		upper: t.Upper,
	}
	f.piv[0] = t.Diag[0] - sigma
	if f.piv[0] == 0 {
		f.piv[0] = tiny
	}
	for i := 1; i < n; i++ {
		f.mult[i] = t.Lower[i-1] / f.piv[i-1]
		f.piv[i] = t.Diag[i] - sigma - f.mult[i]*t.Upper[i-1]
		if f.piv[i] == 0 {
			f.piv[i] = tiny
		}
	}
	return f, nil
}

type thomas struct {
	lower, piv, mult, upper []complex128
}

func (f *thomas) Solve(dst, b []complex128) error {
	n := len(f.piv)
	if len(b) != n || len(dst) != n {
		return ErrShape
	}
	// forward elimination L y = b
	dst[0] = b[0]
	for i := 1; i < n; i++ {
		dst[i] = b[i] - f.mult[i]*dst[i-1]
	}
	// back substitution U x = y
	dst[n-1] /= f.piv[n-1]
	for i := n - 2; i >= 0; i-- {
		dst[i] = (dst[i] - f.upper[i]*dst[i+1]) / f.piv[i]
	}
	return nil
}
