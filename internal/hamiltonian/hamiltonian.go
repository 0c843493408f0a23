// hamiltonian.go --  This file is part of goTDSE project.
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

// Package hamiltonian assembles the finite-difference radial operator of one
// angular channel.
package hamiltonian

import (
	"errors"
	"fmt"

	"github.com/MirzaevaIV/goTDSE/internal/grid"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
)

var ErrPrecondition = errors.New("hamiltonian: precondition violated")

// Potential is a radial potential V(r).
type Potential func(r complex128) complex128

// Coulomb returns V(r) = -charge/r.
func Coulomb(charge float64) Potential {
	z := complex(charge, 0)
	return func(r complex128) complex128 { return -z / r }
}

// Assembler owns the tridiagonal operator
//
//	H = -1/2 d²/dr² + V(r) + l(l+1)/(2r²)
//
// for the channel l on a fixed grid. The second derivative uses the local
// spacing, dr2_i = (r_{i+1} - r_i)(r_i - r_{i-1}) with r_{-1} = 0 and a ghost
// point one spacing past the last grid point, where the wavefunction vanishes.
type Assembler struct {
	grid      grid.Grid
	potential Potential
	l         int

	op  *linalg.Tridiagonal
	adj *linalg.Tridiagonal
}

func New(g grid.Grid, potential Potential, l int) (*Assembler, error) {
	if len(g.Points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 grid points, have %d", ErrPrecondition, len(g.Points))
	}
	if potential == nil {
		return nil, fmt.Errorf("%w: nil potential", ErrPrecondition)
	}
	if l < 0 {
		return nil, fmt.Errorf("%w: l=%d", ErrPrecondition, l)
	}
	a := &Assembler{grid: g, potential: potential}
	a.SetL(l)
	return a, nil
}

// SetL rebuilds every entry of the operator for channel l. This re-evaluates
// the potential at all N points and allocates a new matrix, so callers should
// walk the channels once in order rather than switching back and forth.
func (a *Assembler) SetL(l int) {
	a.l = l
	pts := a.grid.Points
	n := len(pts)
	op := linalg.NewTridiagonal(n)
	cent := complex(float64(l*(l+1))/2, 0)

	at := func(i int) complex128 {
		switch {
		case i < 0:
			return 0
		case i >= n:
			return pts[n-1] + (pts[n-1] - pts[n-2])
		}
		return pts[i]
	}
	for i := 0; i < n; i++ {
		r := pts[i]
		dr2 := (at(i+1) - r) * (r - at(i-1))
		op.Diag[i] = 1/dr2 + a.potential(r) + cent/(r*r)
		if i < n-1 {
			op.Upper[i] = -1 / (2 * dr2)
			op.Lower[i] = op.Upper[i]
		}
	}
	a.op = op
	a.adj = nil
	if a.grid.Complex {
		a.adj = op.ConjTranspose()
	}
}

func (a *Assembler) L() int { return a.l }

// Hermitian reports whether the operator is Hermitian, which holds for real
// grids.
func (a *Assembler) Hermitian() bool { return !a.grid.Complex }

// Operator returns the channel operator.
func (a *Assembler) Operator() *linalg.Tridiagonal { return a.op }

// Transpose returns the Hermitian transpose of the operator, or the operator
// itself when it is Hermitian.
func (a *Assembler) Transpose() *linalg.Tridiagonal {
	if a.adj == nil {
		return a.op
	}
	return a.adj
}

func (a *Assembler) Grid() grid.Grid { return a.grid }
