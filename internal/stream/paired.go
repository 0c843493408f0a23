// paired.go --  This file is part of goTDSE project.
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

package stream

import (
	"errors"
	"fmt"
)

var ErrUnpaired = errors.New("stream: left and right streams out of step")

// PairedLoader advances two loaders together so that the i-th left item is
// always returned with the i-th right item.
type PairedLoader[T any] struct {
	left, right *Loader[T]
}

func NewPairedLoader[T any](capacity int, left, right func() (T, error)) *PairedLoader[T] {
	return &PairedLoader[T]{
		left:  NewLoader(capacity, left),
		right: NewLoader(capacity, right),
	}
}

// Next pops one item from each side. When both sides are exhausted it
// returns ErrOutOfRange; when only one is, ErrUnpaired.
func (p *PairedLoader[T]) Next() (left, right T, err error) {
	left, errL := p.left.PopFront()
	right, errR := p.right.PopFront()
	switch {
	case errL == nil && errR == nil:
		return left, right, nil
	case errors.Is(errL, ErrOutOfRange) && errors.Is(errR, ErrOutOfRange):
		return left, right, ErrOutOfRange
	case errL != nil && !errors.Is(errL, ErrOutOfRange):
		return left, right, fmt.Errorf("left: %w", errL)
	case errR != nil && !errors.Is(errR, ErrOutOfRange):
		return left, right, fmt.Errorf("right: %w", errR)
	}
	return left, right, ErrUnpaired
}

func (p *PairedLoader[T]) Close() {
	p.left.Close()
	p.right.Close()
}
