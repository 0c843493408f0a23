// builder.go --  This file is part of goTDSE project.
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

// Package dipole assembles the dipole coupling matrix of a basis from the
// stored basis vectors, and the field-free operator from its energies.
package dipole

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/basiscache"
	"github.com/MirzaevaIV/goTDSE/internal/grid"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
	"github.com/MirzaevaIV/goTDSE/internal/stream"
)

// RowRange is the half-open set of rows [Start, End) a Builder fills. The
// zero value means all rows.
type RowRange struct {
	Start, End int
}

// Builder computes D_ij = Angular(l_i, l_j) sum_k a_k w_k b_k for every
// selected pair, where a is the row vector (the conjugated left vector of a
// biorthogonal basis), b the column vector and w the integration weights.
// Diagonal entries are stored as explicit zeros.
type Builder struct {
	Prototype basis.Prototype
	Grid      grid.Grid
	Layout    basiscache.Layout
	Rows      RowRange

	// Workers is the number of row workers in random access mode, 0 means
	// one per CPU.
	Workers int
	// Stream reads the vectors sequentially through prefetching loaders
	// instead of random access.
	Stream    bool
	QueueSize int

	Log zerolog.Logger
}

type pair struct{ i, j int }

func (b *Builder) rows() (int, int, error) {
	n := len(b.Prototype)
	r := b.Rows
	if r == (RowRange{}) {
		r.End = n
	}
	if r.Start < 0 || r.End > n || r.Start > r.End {
		return 0, 0, fmt.Errorf("dipole: row range [%d,%d) outside [0,%d)", r.Start, r.End, n)
	}
	return r.Start, r.End, nil
}

// Build returns the n x n coupling matrix with the rows of b.Rows filled.
func (b *Builder) Build(ctx context.Context) (*linalg.CSR, error) {
	if err := b.Prototype.Validate(); err != nil {
		return nil, err
	}
	start, end, err := b.rows()
	if err != nil {
		return nil, err
	}
	if b.Grid.Len() == 0 {
		return nil, fmt.Errorf("dipole: empty grid")
	}

	t0 := time.Now()
	w := IntegrationWeights(b.Grid)
	var entries []linalg.Entry
	if b.Stream {
		entries, err = b.streamed(ctx, start, end, w)
	} else {
		entries, err = b.random(ctx, start, end, w)
	}
	if err != nil {
		return nil, err
	}
	for i := start; i < end; i++ {
		entries = append(entries, linalg.Entry{I: i, J: i})
	}

	n := len(b.Prototype)
	d := linalg.NewCSR(n, n, entries)
	metrics.DipoleEntries.Add(float64(len(entries) - (end - start)))
	b.Log.Info().Int("states", n).Int("rows", end-start).Int("nnz", d.NNZ()).
		Bool("stream", b.Stream).Dur("elapsed", time.Since(t0)).Msg("dipole matrix assembled")
	return d, nil
}

func (b *Builder) element(i, j int, row, col []complex128, w []complex128) complex128 {
	var s complex128
	for k := range w {
		s += row[k] * w[k] * col[k]
	}
	li, lj := b.Prototype[i].L, b.Prototype[j].L
	return complex(Angular(int(li), int(lj)), 0) * s
}

// random splits the rows into contiguous chunks, one per worker. Each worker
// owns its cache and walks its rows in prototype order.
func (b *Builder) random(ctx context.Context, start, end int, w []complex128) ([]linalg.Entry, error) {
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, end-start))
	results := make([][]linalg.Entry, workers)
	rowSide, colSide := b.Layout.Sides()

	g, ctx := errgroup.WithContext(ctx)
	chunk := (end - start + workers - 1) / workers
	for wk := 0; wk < workers; wk++ {
		lo := start + wk*chunk
		hi := min(lo+chunk, end)
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			c := basiscache.New(b.Layout, b.Grid.Len())
			defer c.Close()
			var out []linalg.Entry
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				bi := b.Prototype[i]
				var row []complex128
				for j, bj := range b.Prototype {
					if i == j || !Selected(bi, bj) {
						continue
					}
					var err error
					if row == nil {
						if row, err = c.Vector(rowSide, int(bi.N), int(bi.L)); err != nil {
							return err
						}
					}
					col, err := c.Vector(colSide, int(bj.N), int(bj.L))
					if err != nil {
						return err
					}
					out = append(out, linalg.Entry{I: i, J: j, V: b.element(i, j, row, col, w)})
				}
			}
			results[wk] = out
			b.Log.Debug().Int("worker", wk).Int("rows", hi-lo).Int("entries", len(out)).
				Interface("cache", c.Stats()).Msg("dipole worker done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dipole: %w", err)
	}
	var entries []linalg.Entry
	for _, r := range results {
		entries = append(entries, r...)
	}
	return entries, nil
}

// streamed walks the selected pairs in row order, reading row and column
// vectors through a paired prefetching loader.
func (b *Builder) streamed(ctx context.Context, start, end int, w []complex128) ([]linalg.Entry, error) {
	var pairs []pair
	for i := start; i < end; i++ {
		for j := range b.Prototype {
			if i != j && Selected(b.Prototype[i], b.Prototype[j]) {
				pairs = append(pairs, pair{i, j})
			}
		}
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	rowSide, colSide := b.Layout.Sides()
	rowCache := basiscache.New(b.Layout, b.Grid.Len())
	defer rowCache.Close()
	colCache := basiscache.New(b.Layout, b.Grid.Len())
	defer colCache.Close()

	gen := func(c *basiscache.Cache, side basiscache.Side, pick func(pair) int) func() ([]complex128, error) {
		k := 0
		return func() ([]complex128, error) {
			if k == len(pairs) {
				return nil, stream.ErrNoMoreData
			}
			lb := b.Prototype[pick(pairs[k])]
			k++
			return c.Vector(side, int(lb.N), int(lb.L))
		}
	}
	loader := stream.NewPairedLoader(max(b.QueueSize, 1),
		gen(rowCache, rowSide, func(p pair) int { return p.i }),
		gen(colCache, colSide, func(p pair) int { return p.j }))
	defer loader.Close()

	entries := make([]linalg.Entry, 0, len(pairs))
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, col, err := loader.Next()
		if err != nil {
			if errors.Is(err, stream.ErrOutOfRange) {
				err = stream.ErrUnpaired
			}
			return nil, fmt.Errorf("dipole: pair (%d,%d): %w", p.i, p.j, err)
		}
		entries = append(entries, linalg.Entry{I: p.i, J: p.j, V: b.element(p.i, p.j, row, col, w)})
	}
	return entries, nil
}
