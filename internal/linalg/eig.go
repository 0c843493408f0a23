// eig.go --  This file is part of goTDSE project.
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

	"gonum.org/v1/gonum/mat"
)

// EigHermitian diagonalizes the Hermitian k×k row-major matrix m. Eigenvalues
// are returned in ascending order with unit eigenvectors.
//
// A complex Hermitian M is handled through the real symmetric embedding
// R = [[Re M, -Im M], [Im M, Re M]]: every eigenvalue of M appears twice in R
// and each real eigenvector (u, v) of R gives the eigenvector u + iv of M.
func EigHermitian(k int, m []complex128) ([]float64, [][]complex128, error) {
	if len(m) != k*k {
		return nil, nil, ErrShape
	}
	if IsReal(m) {
		s := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				s.SetSym(i, j, real(m[i*k+j]))
			}
		}
		var es mat.EigenSym
		if !es.Factorize(s, true) {
			return nil, nil, fmt.Errorf("linalg: symmetric eigendecomposition of order %d failed", k)
		}
		var ev mat.Dense
		es.VectorsTo(&ev)
		vals := es.Values(nil)
		vecs := make([][]complex128, k)
		for j := range vecs {
			vecs[j] = make([]complex128, k)
			for i := 0; i < k; i++ {
				vecs[j][i] = complex(ev.At(i, j), 0)
			}
		}
		return vals, vecs, nil
	}

	s := mat.NewSymDense(2*k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			v := m[i*k+j]
			s.SetSym(i, j, real(v))
			s.SetSym(i+k, j+k, real(v))
		}
		for j := 0; j < k; j++ {
			// lower-left block Im M, the symmetric upper-right is -Im M
			s.SetSym(j, i+k, imag(m[i*k+j]))
		}
	}
	var es mat.EigenSym
	if !es.Factorize(s, true) {
		return nil, nil, fmt.Errorf("linalg: hermitian eigendecomposition of order %d failed", k)
	}
	var ev mat.Dense
	es.VectorsTo(&ev)
	all := es.Values(nil)

	vals := make([]float64, 0, k)
	vecs := make([][]complex128, 0, k)
	for c := 0; c < 2*k && len(vecs) < k; c++ {
		z := make([]complex128, k)
		for i := 0; i < k; i++ {
			z[i] = complex(ev.At(i, c), ev.At(i+k, c))
		}
		if kept := Orthonormalize(vecs, [][]complex128{z}, 0.5); len(kept) == 1 {
			vals = append(vals, all[c])
			vecs = append(vecs, kept[0])
		}
	}
	return vals, vecs, nil
}

// EigGeneral returns the eigenvalues and unit right eigenvectors of the
// general complex k×k row-major matrix m, in no particular order.
//
// A complex M goes through the real embedding R. For an eigenvector w = (u, v)
// of R the combination (u + iv)/2 is the component that is an eigenvector of M;
// the component belonging to conj(M) cancels.
func EigGeneral(k int, m []complex128) ([]complex128, [][]complex128, error) {
	if len(m) != k*k {
		return nil, nil, ErrShape
	}
	if IsReal(m) {
		d := mat.NewDense(k, k, nil)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				d.Set(i, j, real(m[i*k+j]))
			}
		}
		var e mat.Eigen
		if !e.Factorize(d, mat.EigenRight) {
			return nil, nil, fmt.Errorf("linalg: eigendecomposition of order %d failed", k)
		}
		var cv mat.CDense
		e.VectorsTo(&cv)
		vals := e.Values(nil)
		vecs := make([][]complex128, k)
		for j := range vecs {
			vecs[j] = make([]complex128, k)
			for i := 0; i < k; i++ {
				vecs[j][i] = cv.At(i, j)
			}
			Scale(complex(1/Norm(vecs[j]), 0), vecs[j])
		}
		return vals, vecs, nil
	}

	d := mat.NewDense(2*k, 2*k, nil)
	var mnorm float64
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			v := m[i*k+j]
			d.Set(i, j, real(v))
			d.Set(i, j+k, -imag(v))
			d.Set(i+k, j, imag(v))
			d.Set(i+k, j+k, real(v))
			mnorm = math.Max(mnorm, cmplx.Abs(v))
		}
	}
	var e mat.Eigen
	if !e.Factorize(d, mat.EigenRight) {
		return nil, nil, fmt.Errorf("linalg: eigendecomposition of order %d failed", 2*k)
	}
	var cv mat.CDense
	e.VectorsTo(&cv)
	all := e.Values(nil)

	tol := 1e-8 * (mnorm + 1)
	mz := make([]complex128, k)
	vals := make([]complex128, 0, k)
	vecs := make([][]complex128, 0, k)
	for c := 0; c < 2*k && len(vecs) < k; c++ {
		z := make([]complex128, k)
		for i := 0; i < k; i++ {
			z[i] = (cv.At(i, c) + 1i*cv.At(i+k, c)) / 2
		}
		nz := Norm(z)
		if nz < 0.35 {
			continue
		}
		Scale(complex(1/nz, 0), z)
		lambda := all[c]
		for i := 0; i < k; i++ {
			var s complex128
			for j := 0; j < k; j++ {
				s += m[i*k+j] * z[j]
			}
			mz[i] = s - lambda*z[i]
		}
		if Norm(mz) > tol {
			continue
		}
		dup := false
		for p, q := range vecs {
			if cmplx.Abs(vals[p]-lambda) <= tol && cmplx.Abs(Dot(q, z)) > 0.9 {
				dup = true
				break
			}
		}
		if !dup {
			vals = append(vals, lambda)
			vecs = append(vecs, z)
		}
	}
	return vals, vecs, nil
}
