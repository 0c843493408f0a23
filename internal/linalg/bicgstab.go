// bicgstab.go --  This file is part of goTDSE project.
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
)

// LinearMap is the minimal matrix interface needed by iterative solvers.
type LinearMap interface {
	Dim() int
	MulVec(dst, x []complex128)
}

// BiCGSTAB solves A x = b with the stabilized bi-conjugate gradient method.
// The content of dst on entry is used as the initial guess.
type BiCGSTAB struct {
	A       LinearMap
	Tol     float64
	MaxIter int
}

func (s *BiCGSTAB) Solve(dst, b []complex128) error {
	n := s.A.Dim()
	if len(b) != n || len(dst) != n {
		return ErrShape
	}
	bnorm := Norm(b)
	if bnorm == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}

	x := dst
	r := make([]complex128, n)
	s.A.MulVec(r, x)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	rhat := Clone(r)
	p := make([]complex128, n)
	v := make([]complex128, n)
	t := make([]complex128, n)
	sv := make([]complex128, n)

	rho, alpha, omega := complex128(1), complex128(1), complex128(1)
	for it := 0; it < s.MaxIter; it++ {
		if Norm(r) <= s.Tol*bnorm {
			return nil
		}
		rhoNew := Dot(rhat, r)
		if rhoNew == 0 {
			// breakdown: restart with the current residual as shadow vector
			copy(rhat, r)
			rhoNew = Dot(rhat, r)
			for i := range p {
				p[i] = 0
				v[i] = 0
			}
			rho, alpha, omega = 1, 1, 1
		}
		beta := (rhoNew / rho) * (alpha / omega)
		for i := range p {
			p[i] = r[i] + beta*(p[i]-omega*v[i])
		}
		s.A.MulVec(v, p)
		den := Dot(rhat, v)
		if den == 0 {
			return fmt.Errorf("%w: breakdown at iteration %d", ErrNoConv, it)
		}
		alpha = rhoNew / den
		for i := range sv {
			sv[i] = r[i] - alpha*v[i]
		}
		if Norm(sv) <= s.Tol*bnorm {
			Axpy(alpha, p, x)
			return nil
		}
		s.A.MulVec(t, sv)
		tt := Dot(t, t)
		if tt == 0 {
			return fmt.Errorf("%w: breakdown at iteration %d", ErrNoConv, it)
		}
		omega = Dot(t, sv) / tt
		for i := range x {
			x[i] += alpha*p[i] + omega*sv[i]
			r[i] = sv[i] - omega*t[i]
		}
		rho = rhoNew
	}
	if Norm(r) <= s.Tol*bnorm {
		return nil
	}
	return fmt.Errorf("%w: residual %.3e after %d iterations", ErrNoConv, Norm(r)/bnorm, s.MaxIter)
}
