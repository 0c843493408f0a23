// field.go --  This file is part of goTDSE project.
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

// Package observables holds the monitors that can be registered with a
// propagate.Propagator.
package observables

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/propagate"
)

const (
	bisectTol   = 1e-16
	bisectSteps = 200
)

// FieldTracker appends (t, E(t)) to efield.dat after every step. When the
// field changes sign within a step it locates the zero by bisection and
// writes the interpolated wavefunction there to wf_<k>.dat.
type FieldTracker struct {
	folder string
	field  func(float64) float64
	out    *binio.Appender
	log    zerolog.Logger

	last      float64
	prevT     float64
	started   bool
	crossings int
}

func NewFieldTracker(folder string, field func(float64) float64, log zerolog.Logger) (*FieldTracker, error) {
	out, err := binio.Create(filepath.Join(folder, "efield.dat"))
	if err != nil {
		return nil, err
	}
	return &FieldTracker{folder: folder, field: field, out: out, log: log}, nil
}

func (f *FieldTracker) Name() string { return "efield" }

func (f *FieldTracker) Last() string { return fmt.Sprintf("%8.3e", f.last) }

// Crossings returns how many zero crossings were written.
func (f *FieldTracker) Crossings() int { return f.crossings }

func (f *FieldTracker) Modify(*linalg.CSR, *propagate.State, *propagate.Context, propagate.Stepper) error {
	return nil
}

func (f *FieldTracker) Evaluate(_ *linalg.CSR, st *propagate.State, s propagate.Stepper) error {
	e := f.field(st.Time)
	if err := f.out.Float64(st.Time, e); err != nil {
		return err
	}
	if f.started && f.last*e < 0 {
		if err := f.crossing(f.prevT, st.Time, s); err != nil {
			return err
		}
	}
	f.last, f.prevT, f.started = e, st.Time, true
	return nil
}

func (f *FieldTracker) crossing(lo, hi float64, s propagate.Stepper) error {
	flo := f.field(lo)
	for i := 0; i < bisectSteps && hi-lo > bisectTol; i++ {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			break
		}
		fm := f.field(mid)
		if fm == 0 {
			lo, hi = mid, mid
			break
		}
		if math.Signbit(fm) == math.Signbit(flo) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	tz := lo + (hi-lo)/2
	psi, err := s.Interpolate(tz)
	if err != nil {
		return err
	}
	path := filepath.Join(f.folder, fmt.Sprintf("wf_%d.dat", f.crossings))
	if err := binio.WriteComplex128s(path, psi); err != nil {
		return err
	}
	f.log.Debug().Float64("t", tz).Str("file", path).Msg("field zero crossing")
	f.crossings++
	return nil
}

func (f *FieldTracker) Close() error { return f.out.Close() }
