// dipole.go --  This file is part of goTDSE project.
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
	"fmt"
	"path/filepath"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/propagate"
)

// Section is a labelled subset of the basis, given as prototype positions.
type Section struct {
	Label   string
	Members []int
}

// LabelCounter hands out section labels: a, b, ... for n sections and A, B,
// ... for energy sections. The caller owns it, so labels continue across
// calls that share a counter.
type LabelCounter struct {
	n, e int
}

func (c *LabelCounter) nextN() string {
	s := letters('a', c.n)
	c.n++
	return s
}

func (c *LabelCounter) nextE() string {
	s := letters('A', c.e)
	c.e++
	return s
}

// letters returns a, b, ..., z, aa, ab, ... for k = 0, 1, ...
func letters(base byte, k int) string {
	var out []byte
	for {
		out = append([]byte{base + byte(k%26)}, out...)
		k = k/26 - 1
		if k < 0 {
			return string(out)
		}
	}
}

// Sections splits p into "all", then one section per entry of nBounds holding
// the states with previous bound < n <= bound, then one per entry of eBounds
// by the real part of the energy in the same way. Empty sections are
// skipped but still consume a label.
func Sections(p basis.Prototype, nBounds []int, eBounds []float64, c *LabelCounter) []Section {
	all := Section{Label: "all", Members: make([]int, len(p))}
	for i := range p {
		all.Members[i] = i
	}
	out := []Section{all}

	lo := 0
	for _, hi := range nBounds {
		s := Section{Label: c.nextN()}
		for i, b := range p {
			if int(b.N) > lo && int(b.N) <= hi {
				s.Members = append(s.Members, i)
			}
		}
		if len(s.Members) > 0 {
			out = append(out, s)
		}
		lo = hi
	}

	elo := -1e300
	for _, ehi := range eBounds {
		s := Section{Label: c.nextE()}
		for i, b := range p {
			if e := real(b.E); e > elo && e <= ehi {
				s.Members = append(s.Members, i)
			}
		}
		if len(s.Members) > 0 {
			out = append(out, s)
		}
		elo = ehi
	}
	return out
}

type sectionPair struct {
	i, j int
	out  *binio.Appender
}

// DipoleTracker records <U_i|D|U_j> after every step for every pair of
// sections i <= j, where U_i is the wavefunction restricted to section i.
// Each pair goes to dipole_<label i>_<label j>.dat as records
// {t float64; value complex128}.
type DipoleTracker struct {
	d        *linalg.CSR
	sections []Section
	pairs    []sectionPair
	last     complex128

	masked [][]complex128
	dpsi   [][]complex128
}

func NewDipoleTracker(folder string, d *linalg.CSR, sections []Section) (*DipoleTracker, error) {
	t := &DipoleTracker{d: d, sections: sections}
	for i := range sections {
		for j := i; j < len(sections); j++ {
			name := fmt.Sprintf("dipole_%s_%s.dat", sections[i].Label, sections[j].Label)
			out, err := binio.Create(filepath.Join(folder, name))
			if err != nil {
				t.Close()
				return nil, err
			}
			t.pairs = append(t.pairs, sectionPair{i: i, j: j, out: out})
		}
	}
	t.masked = make([][]complex128, len(sections))
	t.dpsi = make([][]complex128, len(sections))
	for i := range sections {
		t.masked[i] = make([]complex128, d.Rows)
		t.dpsi[i] = make([]complex128, d.Rows)
	}
	return t, nil
}

func (t *DipoleTracker) Name() string { return "dipole" }

// Last is the expectation value over the whole basis.
func (t *DipoleTracker) Last() string { return fmt.Sprintf("%8.3e", real(t.last)) }

func (t *DipoleTracker) Modify(*linalg.CSR, *propagate.State, *propagate.Context, propagate.Stepper) error {
	return nil
}

func (t *DipoleTracker) Evaluate(_ *linalg.CSR, st *propagate.State, _ propagate.Stepper) error {
	for k, s := range t.sections {
		u := t.masked[k]
		clear(u)
		for _, i := range s.Members {
			u[i] = st.Psi[i]
		}
		t.d.MulVec(t.dpsi[k], u)
	}
	for n, p := range t.pairs {
		v := linalg.Dot(t.masked[p.i], t.dpsi[p.j])
		if n == 0 {
			t.last = v
		}
		if err := p.out.Float64(st.Time); err != nil {
			return err
		}
		if err := p.out.Complex128(v); err != nil {
			return err
		}
	}
	return nil
}

func (t *DipoleTracker) Close() error {
	var first error
	for _, p := range t.pairs {
		if err := p.out.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
