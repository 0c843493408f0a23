// label.go --  This file is part of goTDSE project.
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

// Package basis computes the per-channel eigenbasis and keeps the catalog of
// quantum labels that indexes it.
package basis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/cmplx"
	"os"

	"golang.org/x/exp/slices"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
)

var ErrInvalidPrototype = errors.New("basis: invalid prototype")

// Label identifies one basis state.
type Label struct {
	N, L, M int32
	E       complex128
}

// Compare orders labels by l, then n, then m. The energy is ignored.
func (a Label) Compare(b Label) int {
	switch {
	case a.L != b.L:
		return cmpInt(a.L, b.L)
	case a.N != b.N:
		return cmpInt(a.N, b.N)
	}
	return cmpInt(a.M, b.M)
}

func (a Label) Less(b Label) bool { return a.Compare(b) < 0 }

// Equal requires all four fields to match, energy included.
func (a Label) Equal(b Label) bool { return a == b }

func (a Label) String() string {
	return fmt.Sprintf("(n=%d l=%d m=%d e=%.6g%+.6gi)", a.N, a.L, a.M, real(a.E), imag(a.E))
}

func cmpInt(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Prototype is the ordered catalog of all labels in the basis.
type Prototype []Label

// labelSize is the on-disk record size: three int32 and one complex128.
const labelSize = 3*4 + 16

// Validate checks that p is sorted, free of duplicate (n,l,m), and that each
// channel starts at n = l+1 and counts up by one.
func (p Prototype) Validate() error {
	for i, b := range p {
		if b.L < 0 || b.N < b.L+1 || b.M < -b.L || b.M > b.L {
			return fmt.Errorf("%w: bad quantum numbers at %d: %v", ErrInvalidPrototype, i, b)
		}
		if i == 0 {
			continue
		}
		prev := p[i-1]
		switch c := prev.Compare(b); {
		case c == 0:
			return fmt.Errorf("%w: duplicate label at %d: %v", ErrInvalidPrototype, i, b)
		case c > 0:
			return fmt.Errorf("%w: not sorted at %d: %v after %v", ErrInvalidPrototype, i, b, prev)
		}
	}
	// n counts up from l+1 for every (l, m) channel
	next := map[[2]int32]int32{}
	for i, b := range p {
		key := [2]int32{b.L, b.M}
		want, ok := next[key]
		if !ok {
			want = b.L + 1
		}
		if b.N != want {
			return fmt.Errorf("%w: expected n=%d at %d, got %v", ErrInvalidPrototype, want, i, b)
		}
		next[key] = want + 1
	}
	return nil
}

// Index returns the position of the label with quantum numbers (n, l, m), or
// -1.
func (p Prototype) Index(n, l, m int) int {
	return slices.IndexFunc(p, func(b Label) bool {
		return int(b.N) == n && int(b.L) == l && int(b.M) == m
	})
}

// Energies returns the label energies in prototype order.
func (p Prototype) Energies() []complex128 {
	e := make([]complex128, len(p))
	for i, b := range p {
		e[i] = b.E
	}
	return e
}

// Shrink keeps the labels with n <= max.N, l <= max.L, |m| <= max.M and
// Re e <= Re max.E.
func Shrink(p Prototype, max Label) Prototype {
	out := make(Prototype, 0, len(p))
	for _, b := range p {
		m := b.M
		if m < 0 {
			m = -m
		}
		if b.N <= max.N && b.L <= max.L && m <= max.M && real(b.E) <= real(max.E) {
			out = append(out, b)
		}
	}
	return out
}

// Save writes p as packed little-endian records {n, l, m int32; e complex128}.
func (p Prototype) Save(path string) error {
	return binio.WriteAtomic(path, func(w io.Writer) error {
		return binary.Write(w, binary.LittleEndian, []Label(p))
	})
}

// LoadPrototype reads a prototype written by Save.
func LoadPrototype(path string) (Prototype, error) {
	n, err := binio.Records(path, labelSize)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("basis: %w", err)
	}
	defer f.Close()
	p := make(Prototype, n)
	if err := binary.Read(f, binary.LittleEndian, []Label(p)); err != nil {
		return nil, fmt.Errorf("basis: read %s: %w", path, err)
	}
	return p, nil
}

// WriteText writes p as a text table with columns n l m Re(e) Im(e).
func (p Prototype) WriteText(path string) error {
	rows := make([][]float64, len(p))
	for i, b := range p {
		rows[i] = []float64{float64(b.N), float64(b.L), float64(b.M), real(b.E), imag(b.E)}
	}
	return binio.WriteTable(path, rows)
}

// Abs is a convenience for |e| used when ranking labels.
func (a Label) Abs() float64 { return cmplx.Abs(a.E) }
