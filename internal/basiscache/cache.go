// cache.go --  This file is part of goTDSE project.
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

// Package basiscache reads single basis vectors out of the per-channel files
// written by the basis stage. Files are memory mapped one channel at a time
// per side, so scans in ascending channel order remap each file once.
package basiscache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
)

var (
	ErrBadFile    = errors.New("basiscache: bad basis file")
	ErrOutOfRange = errors.New("basiscache: vector out of range")
)

// Side selects the file family of a vector.
type Side int

const (
	// Single is the only side of a Hermitian basis.
	Single Side = iota
	Right
	Left
)

func (s Side) String() string {
	switch s {
	case Single:
		return "single"
	case Right:
		return "right"
	case Left:
		return "left"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Layout locates the basis files of one basis folder.
type Layout struct {
	Folder       string
	Biorthogonal bool
}

// File returns the path of the channel l file of side.
func (lt Layout) File(side Side, l int) string {
	switch side {
	case Right:
		return basis.RightFile(lt.Folder, l)
	case Left:
		return basis.LeftFile(lt.Folder, l)
	}
	return basis.RealFile(lt.Folder, l)
}

// Sides returns the row and column sides of a dipole element.
func (lt Layout) Sides() (row, col Side) {
	if lt.Biorthogonal {
		return Left, Right
	}
	return Single, Single
}

func (lt Layout) scalarSize() int {
	if lt.Biorthogonal {
		return 16
	}
	return 8
}

type Stats struct {
	Hits   int
	Remaps int
}

type mapping struct {
	l    int
	path string
	data []byte
}

// Cache is not safe for concurrent use.
type Cache struct {
	layout Layout
	points int
	size   int
	sides  [3]mapping
	stats  Stats
}

func New(layout Layout, points int) *Cache {
	c := &Cache{layout: layout, points: points, size: layout.scalarSize()}
	for i := range c.sides {
		c.sides[i].l = -1
	}
	return c
}

// Vector returns a copy of the vector (n, l) of side.
func (c *Cache) Vector(side Side, n, l int) ([]complex128, error) {
	if side < Single || side > Left {
		return nil, fmt.Errorf("basiscache: unknown %v", side)
	}
	m := &c.sides[side]
	if m.data == nil || m.l != l {
		if err := c.remap(side, l); err != nil {
			return nil, err
		}
	} else {
		c.stats.Hits++
	}

	block := c.points * c.size
	k := n - l - 1
	if k < 0 || (k+1)*block > len(m.data) {
		return nil, fmt.Errorf("%w: n=%d l=%d in %s (%d vectors)", ErrOutOfRange, n, l, m.path, len(m.data)/block)
	}
	return c.decode(m.data[k*block : (k+1)*block]), nil
}

func (c *Cache) decode(b []byte) []complex128 {
	v := make([]complex128, c.points)
	le := binary.LittleEndian
	if c.size == 8 {
		for i := range v {
			v[i] = complex(math.Float64frombits(le.Uint64(b[8*i:])), 0)
		}
		return v
	}
	for i := range v {
		v[i] = complex(math.Float64frombits(le.Uint64(b[16*i:])), math.Float64frombits(le.Uint64(b[16*i+8:])))
	}
	return v
}

func (c *Cache) remap(side Side, l int) error {
	m := &c.sides[side]
	if m.data != nil {
		if err := unmap(m.data); err != nil {
			return fmt.Errorf("basiscache: unmap %s: %w", m.path, err)
		}
		m.data = nil
	}
	m.l = -1
	m.path = c.layout.File(side, l)

	data, err := mapFile(m.path)
	if err != nil {
		return fmt.Errorf("basiscache: %w", err)
	}
	block := c.points * c.size
	if len(data) == 0 || len(data)%block != 0 {
		_ = unmap(data)
		return fmt.Errorf("%w: %s has %d bytes, not a positive multiple of %d", ErrBadFile, m.path, len(data), block)
	}
	m.data, m.l = data, l
	c.stats.Remaps++
	metrics.CacheRemaps.WithLabelValues(side.String()).Inc()
	return nil
}

func (c *Cache) Stats() Stats { return c.stats }

// Close releases every mapping.
func (c *Cache) Close() error {
	var errs []error
	for i := range c.sides {
		m := &c.sides[i]
		if m.data != nil {
			if err := unmap(m.data); err != nil {
				errs = append(errs, fmt.Errorf("unmap %s: %w", m.path, err))
			}
		}
		m.data, m.l = nil, -1
	}
	return errors.Join(errs...)
}
