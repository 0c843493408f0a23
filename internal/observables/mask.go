// mask.go --  This file is part of goTDSE project.
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

package observables

import (
	"errors"
	"fmt"
	"math"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/propagate"
)

var ErrMask = errors.New("observables: bad absorber")

// Roll-off profiles of the absorbing mask. Both take the normalized depth x
// into the absorbing region, 0 at its inner edge and 1 at the outermost state.
const (
	CosEighth = "cos_eighth"
	Linear    = "linear"
)

func rollOff(kind string) (func(float64) float64, error) {
	switch kind {
	case CosEighth:
		return func(x float64) float64 {
			c := math.Cos(x * math.Pi / 2)
			if c <= 0 {
				return 0
			}
			return math.Pow(c, 1./8.)
		}, nil
	case Linear:
		return func(x float64) float64 { return 1 - x }, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrMask, kind)
}

// Mask returns one factor per prototype state. States with n > nmax-nSize
// are damped by f((n-nmax+nSize)/nSize), states with l > lmax-lSize likewise
// in l, and the two factors multiply. A zero size switches that direction off.
func Mask(p basis.Prototype, nSize, lSize int, kind string) ([]float64, error) {
	f, err := rollOff(kind)
	if err != nil {
		return nil, err
	}
	var nmax, lmax int
	for _, b := range p {
		nmax = max(nmax, int(b.N))
		lmax = max(lmax, int(b.L))
	}
	if nSize < 0 || lSize < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrMask)
	}
	if nSize > 0 && nSize >= nmax {
		return nil, fmt.Errorf("%w: n size %d must be below the largest n %d", ErrMask, nSize, nmax)
	}
	if lSize > 0 && lSize >= lmax {
		return nil, fmt.Errorf("%w: l size %d must be below the largest l %d", ErrMask, lSize, lmax)
	}

	nStart, lStart := nmax-nSize, lmax-lSize
	m := make([]float64, len(p))
	for i, b := range p {
		a := 1.0
		if n := int(b.N); nSize > 0 && n > nStart {
			a *= f(float64(n-nStart) / float64(nSize))
		}
		if l := int(b.L); lSize > 0 && l > lStart {
			a *= f(float64(l-lStart) / float64(lSize))
		}
		m[i] = a
	}
	return m, nil
}

// MaskAbsorber scales the rows of the generator by a fixed mask every time
// it is evaluated. Last reports the norm the mask would remove from the
// current state.
type MaskAbsorber struct {
	mask    []complex128
	removed float64
}

func NewMaskAbsorber(mask []float64) *MaskAbsorber {
	m := &MaskAbsorber{mask: make([]complex128, len(mask))}
	for i, v := range mask {
		m.mask[i] = complex(v, 0)
	}
	return m
}

func (m *MaskAbsorber) Name() string { return "absorbed" }

func (m *MaskAbsorber) Last() string { return fmt.Sprintf("%8.3e", m.removed) }

func (m *MaskAbsorber) Modify(a *linalg.CSR, st *propagate.State, _ *propagate.Context, _ propagate.Stepper) error {
	if a.Rows != len(m.mask) || len(st.Psi) != len(m.mask) {
		return fmt.Errorf("%w: mask has %d entries, operator %d", propagate.ErrShape, len(m.mask), a.Rows)
	}
	var masked float64
	for i, c := range st.Psi {
		v := real(m.mask[i]) * c
		masked += real(v)*real(v) + imag(v)*imag(v)
	}
	m.removed = linalg.Norm(st.Psi) - math.Sqrt(masked)
	a.ScaleRows(m.mask)
	return nil
}

func (m *MaskAbsorber) Evaluate(*linalg.CSR, *propagate.State, propagate.Stepper) error {
	return nil
}
