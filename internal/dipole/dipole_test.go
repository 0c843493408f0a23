// dipole_test.go --  This file is part of goTDSE project.
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

package dipole

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/basiscache"
	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/config"
	"github.com/MirzaevaIV/goTDSE/internal/grid"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
)

func TestWigner3j(t *testing.T) {
	for _, tc := range []struct {
		j, m [3]int
		want float64
	}{
		{[3]int{1, 1, 0}, [3]int{0, 0, 0}, -1 / math.Sqrt(3)},
		{[3]int{1, 1, 0}, [3]int{1, -1, 0}, 1 / math.Sqrt(3)},
		{[3]int{1, 1, 2}, [3]int{0, 0, 0}, math.Sqrt(2.0 / 15)},
		{[3]int{1, 1, 1}, [3]int{1, -1, 0}, 1 / math.Sqrt(6)},
		{[3]int{2, 2, 2}, [3]int{0, 0, 0}, -math.Sqrt(2.0 / 35)},
		{[3]int{1, 1, 1}, [3]int{0, 0, 0}, 0},
		{[3]int{1, 1, 3}, [3]int{0, 0, 0}, 0},
		{[3]int{1, 1, 0}, [3]int{1, 0, 0}, 0},
	} {
		got := Wigner3j(tc.j[0], tc.j[1], tc.j[2], tc.m[0], tc.m[1], tc.m[2])
		assert.InDelta(t, tc.want, got, 1e-12, "%v %v", tc.j, tc.m)
	}
}

func TestAngular(t *testing.T) {
	for l := 0; l < 6; l++ {
		want := float64(l+1) / math.Sqrt(float64((2*l+1)*(2*l+3)))
		assert.InDelta(t, want, Angular(l, l+1), 1e-12)
		assert.InDelta(t, Angular(l, l+1), Angular(l+1, l), 1e-14)
	}
}

func TestSelected(t *testing.T) {
	s := basis.Label{N: 1, L: 0}
	p := basis.Label{N: 2, L: 1}
	d := basis.Label{N: 3, L: 2}
	assert.True(t, Selected(s, p))
	assert.True(t, Selected(p, s))
	assert.True(t, Selected(p, d))
	assert.False(t, Selected(s, d))
	assert.False(t, Selected(s, basis.Label{N: 2, L: 0}))
	assert.True(t, Selected(s, basis.Label{N: 2, L: 1, M: -1}))
	assert.False(t, Selected(basis.Label{N: 2, L: 1, M: -1}, basis.Label{N: 3, L: 2, M: 1}))
}

func TestIntegrationWeights(t *testing.T) {
	g, err := grid.Uniform(4, 2)
	require.NoError(t, err)
	assert.Equal(t, []complex128{0.25, 0.5, 0.75, 1}, IntegrationWeights(g))
}

func TestTwoStateMatrix(t *testing.T) {
	dir := t.TempDir()
	g, err := grid.Uniform(4, 4)
	require.NoError(t, err)
	require.NoError(t, binio.WriteFloat64s(basis.RealFile(dir, 0), []float64{1, 2, 3, 4}))
	require.NoError(t, binio.WriteFloat64s(basis.RealFile(dir, 1), []float64{1, 1, 1, 1}))

	for _, streamed := range []bool{false, true} {
		b := Builder{
			Prototype: basis.Prototype{{N: 1, L: 0, E: -0.5}, {N: 2, L: 1, E: -0.125}},
			Grid:      g,
			Layout:    basiscache.Layout{Folder: dir},
			Stream:    streamed,
			QueueSize: 2,
			Log:       zerolog.Nop(),
		}
		d, err := b.Build(context.Background())
		require.NoError(t, err)

		want := complex(30/math.Sqrt(3), 0)
		assert.InDelta(t, 0, cmplx.Abs(d.At(0, 1)-want), 1e-12)
		assert.InDelta(t, 0, cmplx.Abs(d.At(1, 0)-cmplx.Conj(d.At(0, 1))), 1e-12)
		assert.Equal(t, complex128(0), d.At(0, 0))
		assert.Equal(t, complex128(0), d.At(1, 1))
		assert.GreaterOrEqual(t, d.Index(0, 0), 0, "diagonal is stored")
		assert.Equal(t, 4, d.NNZ())
	}
}

// randomBasis writes random real vectors for every channel of p.
func randomBasis(t *testing.T, dir string, p basis.Prototype, points int, complexVectors bool) {
	t.Helper()
	rng := rand.New(rand.NewPCG(3, 4))
	counts := map[int32]int{}
	for _, b := range p {
		counts[b.L]++
	}
	lt := basiscache.Layout{Folder: dir, Biorthogonal: complexVectors}
	for l, c := range counts {
		if !complexVectors {
			v := make([]float64, c*points)
			for i := range v {
				v[i] = rng.NormFloat64()
			}
			require.NoError(t, binio.WriteFloat64s(lt.File(basiscache.Single, int(l)), v))
			continue
		}
		for _, side := range []basiscache.Side{basiscache.Left, basiscache.Right} {
			v := make([]complex128, c*points)
			for i := range v {
				v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
			}
			require.NoError(t, binio.WriteComplex128s(lt.File(side, int(l)), v))
		}
	}
}

func testPrototype() basis.Prototype {
	var p basis.Prototype
	for l := 0; l <= 2; l++ {
		ins := basis.NewChannelInserter(l)
		for n := l + 1; n <= 4; n++ {
			p = append(p, ins.Insert(complex(-0.5/float64(n*n), 0)))
		}
	}
	return p
}

func TestStreamedMatchesRandomAccess(t *testing.T) {
	p := testPrototype()
	for _, biorthogonal := range []bool{false, true} {
		dir := t.TempDir()
		randomBasis(t, dir, p, 16, biorthogonal)
		g, err := grid.Uniform(16, 8)
		require.NoError(t, err)

		build := func(streamed bool, workers int) *linalg.CSR {
			b := Builder{
				Prototype: p, Grid: g,
				Layout:  basiscache.Layout{Folder: dir, Biorthogonal: biorthogonal},
				Workers: workers, Stream: streamed, QueueSize: 3,
				Log: zerolog.Nop(),
			}
			d, err := b.Build(context.Background())
			require.NoError(t, err)
			return d
		}
		ref := build(false, 1)
		for _, d := range []*linalg.CSR{build(false, 3), build(true, 0)} {
			assert.Equal(t, ref.RowPtr, d.RowPtr)
			assert.Equal(t, ref.ColIdx, d.ColIdx)
			for k := range ref.Values {
				assert.InDelta(t, 0, cmplx.Abs(ref.Values[k]-d.Values[k]), 1e-12)
			}
		}

		// selection rules hold everywhere
		for i := range p {
			for j := range p {
				if i == j || !Selected(p[i], p[j]) {
					assert.Equal(t, complex128(0), ref.At(i, j))
				}
			}
		}
	}
}

func TestRowRange(t *testing.T) {
	p := testPrototype()
	dir := t.TempDir()
	randomBasis(t, dir, p, 8, false)
	g, err := grid.Uniform(8, 8)
	require.NoError(t, err)

	full, err := (&Builder{Prototype: p, Grid: g, Layout: basiscache.Layout{Folder: dir}, Log: zerolog.Nop()}).Build(context.Background())
	require.NoError(t, err)
	part, err := (&Builder{Prototype: p, Grid: g, Layout: basiscache.Layout{Folder: dir}, Rows: RowRange{Start: 2, End: 6}, Log: zerolog.Nop()}).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(p), part.Rows)
	for i := range p {
		for j := range p {
			if i >= 2 && i < 6 {
				assert.Equal(t, full.At(i, j), part.At(i, j))
			} else {
				assert.Equal(t, -1, part.Index(i, j))
			}
		}
	}

	_, err = (&Builder{Prototype: p, Grid: g, Layout: basiscache.Layout{Folder: dir}, Rows: RowRange{Start: 3, End: 99}}).Build(context.Background())
	assert.Error(t, err)
}

func TestBuildRejects(t *testing.T) {
	g, err := grid.Uniform(4, 4)
	require.NoError(t, err)
	dir := t.TempDir()

	_, err = (&Builder{Prototype: basis.Prototype{{N: 2, L: 1}, {N: 1, L: 0}}, Grid: g, Layout: basiscache.Layout{Folder: dir}}).Build(context.Background())
	assert.ErrorIs(t, err, basis.ErrInvalidPrototype)

	_, err = (&Builder{Prototype: basis.Prototype{{N: 1, L: 0}, {N: 2, L: 1}}, Grid: g, Layout: basiscache.Layout{Folder: dir}}).Build(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun(t *testing.T) {
	bdir := t.TempDir()
	bp := config.Default().Basis
	bp.Folder = bdir
	bp.Points = 8
	bp.RMax = 8
	require.NoError(t, config.Write(bdir, "basis", bp))

	p := testPrototype()
	require.NoError(t, p.Save(filepath.Join(bdir, basis.PrototypeFile)))
	g, err := grid.Uniform(8, 8)
	require.NoError(t, err)
	require.NoError(t, g.Save(filepath.Join(bdir, basis.GridFile)))
	randomBasis(t, bdir, p, 8, false)

	hp := config.Default().Hamiltonian
	hp.Folder = filepath.Join(t.TempDir(), "ham")
	hp.BasisFolder = bdir
	hp.NMax = 2
	hp.LMax = 1
	hp.Workers = 2

	proto, d, err := Run(context.Background(), hp, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, basis.Prototype{p[0], p[1], p[4]}, proto)
	assert.Equal(t, 3, d.Rows)

	back, err := linalg.LoadCSR(filepath.Join(hp.Folder, MatrixFile))
	require.NoError(t, err)
	assert.Equal(t, d, back)
	e, err := binio.ReadComplex128s(filepath.Join(hp.Folder, EnergyFile))
	require.NoError(t, err)
	assert.Equal(t, []complex128{-0.5, -0.125, -0.125}, e)
	shrunk, err := basis.LoadPrototype(filepath.Join(hp.Folder, basis.PrototypeFile))
	require.NoError(t, err)
	assert.Equal(t, proto, shrunk)

	hp.EMax = -10
	_, _, err = Run(context.Background(), hp, zerolog.Nop())
	assert.ErrorIs(t, err, basis.ErrPrecondition)
}
