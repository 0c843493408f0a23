// vector.go --  This file is part of goTDSE project.
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

// Package linalg holds the complex sparse and dense primitives the solver
// stages are built on: tridiagonal channel operators, CSR coupling matrices,
// shifted linear solves and small projected eigenproblems.
package linalg

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
)

var (
	ErrShape    = errors.New("linalg: dimension mismatch")
	ErrSingular = errors.New("linalg: matrix is singular")
	ErrNoConv   = errors.New("linalg: iterative solve did not converge")
)

// Operator is a square complex linear map that can be shifted and inverted.
type Operator interface {
	Dim() int
	MulVec(dst, x []complex128)
	// Factor prepares solves with (A - sigma I).
	Factor(sigma complex128) (Solver, error)
	NormInf() float64
}

// Solver solves a prepared linear system into dst.
type Solver interface {
	Solve(dst, b []complex128) error
}

// Dot returns the unweighted inner product sum conj(x_i) y_i.
func Dot(x, y []complex128) complex128 {
	return cmplxs.Dot(x, y)
}

// WDot returns sum conj(x_i) w_i y_i.
func WDot(w, x, y []complex128) complex128 {
	var s complex128
	for i := range x {
		s += cmplx.Conj(x[i]) * w[i] * y[i]
	}
	return s
}

// Norm is the Euclidean norm.
func Norm(x []complex128) float64 {
	return cmplxs.Norm(x, 2)
}

// WNorm returns sqrt(sum |w_i| |x_i|^2).
func WNorm(w, x []complex128) float64 {
	var s float64
	for i, v := range x {
		a := cmplx.Abs(v)
		s += cmplx.Abs(w[i]) * a * a
	}
	return math.Sqrt(s)
}

// Axpy computes y += alpha x.
func Axpy(alpha complex128, x, y []complex128) {
	cmplxs.AddScaled(y, alpha, x)
}

// Scale multiplies x by alpha in place.
func Scale(alpha complex128, x []complex128) {
	cmplxs.Scale(alpha, x)
}

// Clone returns a copy of x.
func Clone(x []complex128) []complex128 {
	return append([]complex128(nil), x...)
}

// Orthonormalize runs two passes of modified Gram-Schmidt over vs against the
// already orthonormal set against and each other. Columns that collapse below
// drop of their original norm are removed. The kept vectors are returned.
func Orthonormalize(against, vs [][]complex128, drop float64) [][]complex128 {
	kept := vs[:0]
	for _, v := range vs {
		n0 := Norm(v)
		if n0 == 0 {
			continue
		}
		for pass := 0; pass < 2; pass++ {
			for _, q := range against {
				Axpy(-Dot(q, v), q, v)
			}
			for _, q := range kept {
				Axpy(-Dot(q, v), q, v)
			}
		}
		n1 := Norm(v)
		if n1 <= drop*n0 {
			continue
		}
		Scale(complex(1/n1, 0), v)
		kept = append(kept, v)
	}
	return kept
}

// IsReal reports whether every element of x has zero imaginary part.
func IsReal(x []complex128) bool {
	for _, v := range x {
		if imag(v) != 0 {
			return false
		}
	}
	return true
}
