// lu.go --  This file is part of goTDSE project.
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

	"gonum.org/v1/gonum/mat"
)

// DenseLU is an LU factorization of a complex n×n matrix A, held as the LU of
// the real 2n×2n matrix [[Re A, -Im A], [Im A, Re A]].
type DenseLU struct {
	n  int
	lu mat.LU
}

// FactorDense factorizes the row-major complex matrix a.
func FactorDense(n int, a []complex128) (*DenseLU, error) {
	if len(a) != n*n {
		return nil, ErrShape
	}
	r := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := a[i*n+j]
			r.Set(i, j, real(v))
			r.Set(i, j+n, -imag(v))
			r.Set(i+n, j, imag(v))
			r.Set(i+n, j+n, real(v))
		}
	}
	f := &DenseLU{n: n}
	f.lu.Factorize(r)
	if logDet, _ := f.lu.LogDet(); math.IsInf(logDet, -1) {
		return nil, fmt.Errorf("%w: dense LU of order %d", ErrSingular, n)
	}
	return f, nil
}

// Solve computes dst = A^-1 b.
func (f *DenseLU) Solve(dst, b []complex128) error {
	n := f.n
	if len(b) != n || len(dst) != n {
		return ErrShape
	}
	rhs := mat.NewVecDense(2*n, nil)
	for i, v := range b {
		rhs.SetVec(i, real(v))
		rhs.SetVec(i+n, imag(v))
	}
	var x mat.VecDense
	if err := f.lu.SolveVecTo(&x, false, rhs); err != nil {
		// a finite mat.Condition only warns about accuracy
		if c, ok := err.(mat.Condition); !ok || math.IsInf(float64(c), 1) {
			return fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}
	for i := range dst {
		dst[i] = complex(x.AtVec(i), x.AtVec(i+n))
	}
	return nil
}
