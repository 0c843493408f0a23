// grid.go --  This file is part of goTDSE project.
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

// Package grid builds the radial discretization used by every later stage.
package grid

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
)

var ErrInvalidGrid = errors.New("grid: invalid parameters")

// Grid is an ordered set of radial points with strictly increasing real part.
// Points[0] is the first interior point; the origin is not stored.
// Complex marks an exterior-complex-scaled grid.
type Grid struct {
	Points  []complex128
	Complex bool
}

// Uniform returns n points r_i = (rmax/n)(i+1).
func Uniform(n int, rmax float64) (Grid, error) {
	if n <= 0 || rmax <= 0 {
		return Grid{}, fmt.Errorf("%w: n=%d rmax=%g", ErrInvalidGrid, n, rmax)
	}
	dr := rmax / float64(n)
	pts := make([]complex128, n)
	for i := range pts {
		pts[i] = complex(dr*float64(i+1), 0)
	}
	return Grid{Points: pts}, nil
}

// Absorbing returns the uniform progression with the exterior region beyond
// rmax(1-fraction) rotated into the complex plane by alpha.
func Absorbing(n int, rmax, fraction, alpha float64) (Grid, error) {
	if fraction <= 0 || fraction > 1 {
		return Grid{}, fmt.Errorf("%w: fraction=%g", ErrInvalidGrid, fraction)
	}
	g, err := Uniform(n, rmax)
	if err != nil {
		return Grid{}, err
	}
	boundary := rmax * (1 - fraction)
	rot := cmplx.Exp(complex(0, alpha))
	for i, p := range g.Points {
		if r := real(p); r > boundary {
			g.Points[i] = complex(boundary, 0) + complex(r-boundary, 0)*rot
		}
	}
	g.Complex = true
	return g, nil
}

func (g Grid) Len() int { return len(g.Points) }

// Weights returns the spacing between successive points, the first weight
// being the distance of Points[0] from the origin.
func (g Grid) Weights() []complex128 {
	w := make([]complex128, len(g.Points))
	prev := complex128(0)
	for i, p := range g.Points {
		w[i] = p - prev
		prev = p
	}
	return w
}

// Save writes the grid as float64 values, or complex128 values for a complex
// grid, in generation order.
func (g Grid) Save(path string) error {
	if g.Complex {
		return binio.WriteComplex128s(path, g.Points)
	}
	re := make([]float64, len(g.Points))
	for i, p := range g.Points {
		re[i] = real(p)
	}
	return binio.WriteFloat64s(path, re)
}

// Load reads a grid written by Save.
func Load(path string, complexGrid bool) (Grid, error) {
	if complexGrid {
		pts, err := binio.ReadComplex128s(path)
		if err != nil {
			return Grid{}, err
		}
		return Grid{Points: pts, Complex: true}, nil
	}
	re, err := binio.ReadFloat64s(path)
	if err != nil {
		return Grid{}, err
	}
	pts := make([]complex128, len(re))
	for i, r := range re {
		pts[i] = complex(r, 0)
	}
	return Grid{Points: pts}, nil
}
