// grid_test.go --  This file is part of goTDSE project.
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

package grid

import (
	"math"
	"math/cmplx"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniform(t *testing.T) {
	g, err := Uniform(4, 8)
	require.NoError(t, err)
	assert.Equal(t, []complex128{2, 4, 6, 8}, g.Points)
	assert.False(t, g.Complex)

	for _, tc := range []struct {
		n int
		r float64
	}{{1, 1}, {7, 3.5}, {100, 50}, {1000, 200}} {
		g, err := Uniform(tc.n, tc.r)
		require.NoError(t, err)
		require.Len(t, g.Points, tc.n)
		for i, p := range g.Points {
			assert.InDelta(t, tc.r/float64(tc.n)*float64(i+1), real(p), 1e-12)
			if i > 0 {
				assert.Greater(t, real(p), real(g.Points[i-1]))
			}
		}
	}
}

func TestInvalid(t *testing.T) {
	_, err := Uniform(0, 1)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Uniform(4, 0)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Uniform(4, -2)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Absorbing(4, 8, 0, 0.3)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = Absorbing(4, 8, 1.5, 0.3)
	assert.ErrorIs(t, err, ErrInvalidGrid)
}

func TestAbsorbing(t *testing.T) {
	const (
		n     = 50
		rmax  = 25.0
		frac  = 0.2
		alpha = math.Pi / 6
	)
	u, err := Uniform(n, rmax)
	require.NoError(t, err)
	g, err := Absorbing(n, rmax, frac, alpha)
	require.NoError(t, err)
	require.True(t, g.Complex)

	boundary := complex(rmax*(1-frac), 0)
	for i := range g.Points {
		if real(u.Points[i]) <= real(boundary) {
			assert.Equal(t, u.Points[i], g.Points[i])
			continue
		}
		want := boundary + (u.Points[i]-boundary)*cmplx.Exp(complex(0, alpha))
		assert.InDelta(t, 0, cmplx.Abs(want-g.Points[i]), 1e-12)
		assert.Greater(t, real(g.Points[i]), real(g.Points[i-1]))
	}
}

func TestWeights(t *testing.T) {
	g, err := Uniform(4, 8)
	require.NoError(t, err)
	assert.Equal(t, []complex128{2, 2, 2, 2}, g.Weights())
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	u, err := Uniform(5, 10)
	require.NoError(t, err)
	require.NoError(t, u.Save(filepath.Join(dir, "grid.dat")))
	back, err := Load(filepath.Join(dir, "grid.dat"), false)
	require.NoError(t, err)
	assert.Equal(t, u, back)

	c, err := Absorbing(5, 10, 0.5, 0.4)
	require.NoError(t, err)
	require.NoError(t, c.Save(filepath.Join(dir, "cgrid.dat")))
	back, err = Load(filepath.Join(dir, "cgrid.dat"), true)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
