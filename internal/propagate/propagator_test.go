// propagator_test.go --  This file is part of goTDSE project.
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

package propagate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MirzaevaIV/goTDSE/internal/linalg"
)

func twoLevel(field func(float64) float64, coupling complex128) *Context {
	d := linalg.NewCSR(2, 2, []linalg.Entry{{I: 0, J: 1, V: coupling}, {I: 1, J: 0, V: cmplx.Conj(coupling)}})
	return &Context{Dipole: d, FieldFree: []complex128{0, 1}, Field: field}
}

func TestFreeEvolutionIsUnitary(t *testing.T) {
	c := twoLevel(func(float64) float64 { return 0 }, 0)
	p, err := New(c, Times{Start: 0, End: 1, Dt: 0.01})
	require.NoError(t, err)

	psi0 := []complex128{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)}
	st, err := p.Run(context.Background(), psi0)
	require.NoError(t, err)

	assert.Equal(t, 100, st.Step)
	assert.InDelta(t, 1, st.Time, 1e-12)
	assert.InDelta(t, linalg.Norm(psi0), linalg.Norm(st.Psi), 1e-10)

	// the excited amplitude picks up exp(-i t) up to the O(dt²) phase error
	want := psi0[1] * cmplx.Exp(-1i)
	assert.InDelta(t, 0, cmplx.Abs(st.Psi[1]-want), 1e-4)
	assert.InDelta(t, 0, cmplx.Abs(st.Psi[0]-psi0[0]), 1e-14)
}

func TestDrivenEvolutionConservesNorm(t *testing.T) {
	c := twoLevel(func(t float64) float64 { return 0.3 * math.Sin(t) }, 1)
	p, err := New(c, Times{Start: 0, End: 5, Dt: 0.05})
	require.NoError(t, err)
	st, err := p.Run(context.Background(), []complex128{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1, linalg.Norm(st.Psi), 1e-10)
	assert.Greater(t, cmplx.Abs(st.Psi[1]), 1e-3, "the field populates the upper level")
}

func TestRunOnce(t *testing.T) {
	p, err := New(twoLevel(nil, 0), Times{End: 0.1, Dt: 0.05})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), []complex128{1, 0})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), []complex128{1, 0})
	assert.ErrorIs(t, err, ErrNotIdle)
}

func TestShapeChecks(t *testing.T) {
	c := twoLevel(nil, 0)
	c.FieldFree = []complex128{0}
	_, err := New(c, Times{End: 1, Dt: 0.1})
	assert.ErrorIs(t, err, ErrShape)

	_, err = New(twoLevel(nil, 0), Times{End: 1, Dt: 0})
	assert.Error(t, err)

	p, err := New(twoLevel(nil, 0), Times{End: 1, Dt: 0.1})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), []complex128{1, 0, 0})
	assert.ErrorIs(t, err, ErrShape)
}

// recorder logs the hook calls it receives.
type recorder struct {
	name  string
	calls *[]string
	fail  error
}

func (r *recorder) Name() string { return r.name }
func (r *recorder) Last() string { return "ok" }

func (r *recorder) Modify(a *linalg.CSR, st *State, c *Context, s Stepper) error {
	*r.calls = append(*r.calls, fmt.Sprintf("%s.modify", r.name))
	return r.fail
}

func (r *recorder) Evaluate(a *linalg.CSR, st *State, s Stepper) error {
	*r.calls = append(*r.calls, fmt.Sprintf("%s.evaluate %d", r.name, s.Step()))
	return nil
}

func TestObserverOrder(t *testing.T) {
	var calls []string
	p, err := New(twoLevel(nil, 0), Times{End: 0.2, Dt: 0.1})
	require.NoError(t, err)
	p.Register(&recorder{name: "a", calls: &calls}, nil, &recorder{name: "b", calls: &calls})

	_, err = p.Run(context.Background(), []complex128{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a.modify", "b.modify", "a.evaluate 0", "b.evaluate 0",
		"a.modify", "b.modify", "a.evaluate 1", "b.evaluate 1",
		"a.modify", "b.modify", "a.evaluate 2", "b.evaluate 2",
	}, calls)
}

func TestObserverErrorStopsRun(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	p, err := New(twoLevel(nil, 0), Times{End: 1, Dt: 0.1})
	require.NoError(t, err)
	p.Register(&recorder{name: "bad", calls: &calls, fail: boom})
	_, err = p.Run(context.Background(), []complex128{1, 0})
	assert.ErrorIs(t, err, boom)
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err := New(twoLevel(nil, 0), Times{End: 1, Dt: 0.1})
	require.NoError(t, err)
	_, err = p.Run(ctx, []complex128{1, 0})
	assert.ErrorIs(t, err, context.Canceled)
}

// interpolating checks Interpolate against the states it has seen.
type interpolating struct {
	t     *testing.T
	prev  []complex128
	prevT float64
}

func (o *interpolating) Name() string { return "interp" }
func (o *interpolating) Last() string { return "" }
func (o *interpolating) Modify(*linalg.CSR, *State, *Context, Stepper) error {
	return nil
}

func (o *interpolating) Evaluate(a *linalg.CSR, st *State, s Stepper) error {
	if o.prev != nil {
		mid, err := s.Interpolate((o.prevT + st.Time) / 2)
		require.NoError(o.t, err)
		for i := range mid {
			assert.InDelta(o.t, 0, cmplx.Abs(mid[i]-(o.prev[i]+st.Psi[i])/2), 1e-14)
		}
		_, err = s.Interpolate(st.Time + 1)
		assert.Error(o.t, err)
	}
	o.prev, o.prevT = linalg.Clone(st.Psi), st.Time
	return nil
}

func TestInterpolate(t *testing.T) {
	p, err := New(twoLevel(nil, 0), Times{End: 0.3, Dt: 0.1})
	require.NoError(t, err)
	p.Register(&interpolating{t: t})
	_, err = p.Run(context.Background(), []complex128{0.6, 0.8})
	require.NoError(t, err)
}
