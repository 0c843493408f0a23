// solver_test.go --  This file is part of goTDSE project.
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

package eigen

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MirzaevaIV/goTDSE/internal/linalg"
)

func diagonal(n int) *linalg.Tridiagonal {
	t := linalg.NewTridiagonal(n)
	for i := range t.Diag {
		t.Diag[i] = complex(float64(i+1), 0)
	}
	return t
}

func TestDiagonalSpectrum(t *testing.T) {
	s := New()
	s.SetOperator(diagonal(20))
	s.SetDimensions(3, 0)
	s.SetTolerances(1e-12, 500)
	s.SetShiftInvert(0)
	require.NoError(t, s.Solve())
	require.Equal(t, 3, s.NumConverged())

	for i := 0; i < 3; i++ {
		p := s.Pair(i)
		assert.Equal(t, i, p.Index)
		assert.InDelta(t, float64(i+1), real(p.Value), 1e-10)
		assert.InDelta(t, 0, imag(p.Value), 1e-14)
		assert.InDelta(t, 1, cmplx.Abs(p.Vector[i]), 1e-8)
		assert.InDelta(t, 1, linalg.Norm(p.Vector), 1e-12)
	}
}

func TestWeightedNormalization(t *testing.T) {
	w := make([]complex128, 10)
	for i := range w {
		w[i] = 2
	}
	s := New()
	s.SetOperator(diagonal(10))
	s.SetTolerances(1e-12, 500)
	s.SetShiftInvert(4.2)
	s.SetInnerProduct(w)
	require.NoError(t, s.Solve())
	require.Equal(t, 1, s.NumConverged())

	p := s.Pair(0)
	assert.InDelta(t, 4, real(p.Value), 1e-10)
	assert.InDelta(t, 1/math.Sqrt2, real(p.Vector[3]), 1e-8)
	assert.InDelta(t, 1, linalg.WNorm(w, p.Vector), 1e-12)
}

func TestDeflation(t *testing.T) {
	op := diagonal(12)
	e1 := make([]complex128, 12)
	e1[0] = 1

	s := New()
	s.SetOperator(op)
	s.SetTolerances(1e-12, 500)
	s.SetShiftInvert(0)
	s.SetDeflationSpace(e1)
	require.NoError(t, s.Solve())
	require.Equal(t, 1, s.NumConverged())
	assert.InDelta(t, 2, real(s.Pair(0).Value), 1e-10)
}

func TestNonHermitian(t *testing.T) {
	const n = 40
	op := linalg.NewTridiagonal(n)
	for i := range op.Diag {
		op.Diag[i] = complex(2+0.1*float64(i), -0.01*float64(i))
	}
	for i := range op.Upper {
		op.Upper[i] = complex(-0.5, 0.05)
		op.Lower[i] = complex(-0.5, 0.05)
	}
	require.False(t, op.Hermitian())

	sigma := complex(1.5, 0)
	s := New()
	s.SetOperator(op)
	s.SetDimensions(4, 0)
	s.SetTolerances(1e-10, 1000)
	s.SetShiftInvert(sigma)
	require.NoError(t, s.Solve())
	require.Equal(t, 4, s.NumConverged())

	prev := 0.0
	ax := make([]complex128, n)
	for i := 0; i < 4; i++ {
		p := s.Pair(i)
		d := cmplx.Abs(p.Value - sigma)
		assert.GreaterOrEqual(t, d, prev-1e-12)
		prev = d

		op.MulVec(ax, p.Vector)
		linalg.Axpy(-p.Value, p.Vector, ax)
		assert.Less(t, linalg.Norm(ax), 1e-8)
	}
}

func TestSolveEscalatingGivesUp(t *testing.T) {
	s := New()
	s.SetOperator(diagonal(200))
	s.SetTolerances(0, 1)
	s.SetShiftInvert(10.5)

	retries, err := SolveEscalating(s, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, 3, retries)
}

func TestSolveEscalatingSucceeds(t *testing.T) {
	s := New()
	s.SetOperator(diagonal(20))
	s.SetTolerances(1e-10, 200)
	s.SetShiftInvert(0.2)

	retries, err := SolveEscalating(s, DefaultRetries)
	require.NoError(t, err)
	assert.Zero(t, retries)
	assert.InDelta(t, 1, real(s.Pair(0).Value), 1e-10)
}

func TestNoOperator(t *testing.T) {
	assert.ErrorIs(t, New().Solve(), ErrNoOperator)
}
