// groundstate.go --  This file is part of goTDSE project.
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
	"math/cmplx"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/checkpoint"
	"github.com/MirzaevaIV/goTDSE/internal/config"
	"github.com/MirzaevaIV/goTDSE/internal/eigen"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
	"github.com/MirzaevaIV/goTDSE/internal/propagate"
)

const (
	// pairs with a smaller squared overlap are deflated
	acceptOverlap = 1e-10
	// the search ends once the best squared overlap reaches this
	foundOverlap = 1e-2
)

// SearchResult is the eigenpair of an operator that overlaps most with a
// given state.
type SearchResult struct {
	Value   complex128
	Vector  []complex128
	Overlap complex128
	// Seeds are the accepted eigenvectors, to seed the next search with.
	Seeds [][]complex128
	Outer int
}

// Search looks for the eigenpair of op near shift with the largest overlap
// with psi. Every converged pair whose squared overlap exceeds 1e-10 is kept
// as a seed; the others are projected out of the seed state and deflated.
// The search repeats until some squared overlap reaches 1e-2, giving up with
// eigen.ErrSearchFailed after maxOuter rounds. Rounds where nothing converges
// are escalated up to retries times.
func Search(s *eigen.Solver, op linalg.Operator, psi []complex128, seeds [][]complex128, shift complex128, maxOuter, retries int) (SearchResult, error) {
	s.SetOperator(op)
	s.SetShiftInvert(shift)
	s.SetWhich(eigen.NearestShift)

	uu := linalg.Clone(psi)
	var (
		deflation [][]complex128
		best      SearchResult
		bestPop   = -1.0
	)
	for outer := 1; outer <= maxOuter; outer++ {
		s.Reset()
		s.SetInitialVectors(append([][]complex128{uu}, seeds...)...)
		s.SetDeflationSpace(deflation...)
		esc, err := eigen.SolveEscalating(s, retries)
		metrics.EigenIterations.WithLabelValues("gs_tracker").Add(float64(s.Iterations()))
		metrics.EigenEscalations.WithLabelValues("gs_tracker").Add(float64(esc))
		if err != nil {
			return best, err
		}

		seeds = seeds[:0:0]
		for i := 0; i < s.NumConverged(); i++ {
			pr := s.Pair(i)
			ip := linalg.Dot(pr.Vector, psi)
			pop := real(ip * cmplx.Conj(ip))
			if pop > acceptOverlap {
				seeds = append(seeds, pr.Vector)
			} else {
				linalg.Axpy(-linalg.Dot(pr.Vector, uu), pr.Vector, uu)
				deflation = append(deflation, pr.Vector)
			}
			if pop >= bestPop {
				bestPop = pop
				best = SearchResult{Value: pr.Value, Vector: pr.Vector, Overlap: ip}
			}
		}
		best.Seeds, best.Outer = seeds, outer
		if bestPop >= foundOverlap {
			return best, nil
		}
	}
	return best, fmt.Errorf("%w: best population %.3e after %d rounds", eigen.ErrSearchFailed, bestPop, maxOuter)
}

// GroundStateTracker follows the instantaneous eigenstate of the generator
// that overlaps most with the wavefunction. Every Every steps it appends
// {t, |overlap|, arg overlap} to gs_pop.dat, stores the eigenvector as
// gs_<step>.dat and the wavefunction as a gs_<step>.msgpack checkpoint.
type GroundStateTracker struct {
	folder string
	params config.GroundStateParams
	run    uuid.UUID
	solver *eigen.Solver
	seeds  [][]complex128
	out    *binio.Appender
	log    zerolog.Logger
	last   complex128
}

func NewGroundStateTracker(folder string, p config.GroundStateParams, run uuid.UUID, log zerolog.Logger) (*GroundStateTracker, error) {
	if p.Every < 1 || p.MaxOuter < 1 {
		return nil, fmt.Errorf("observables: ground state tracker needs every >= 1 and max_outer >= 1, got %d and %d", p.Every, p.MaxOuter)
	}
	out, err := binio.Create(filepath.Join(folder, "gs_pop.dat"))
	if err != nil {
		return nil, err
	}
	s := eigen.New()
	s.SetLogger(log)
	return &GroundStateTracker{folder: folder, params: p, run: run, solver: s, out: out, log: log}, nil
}

func (g *GroundStateTracker) Name() string { return "gs" }

func (g *GroundStateTracker) Last() string {
	return fmt.Sprintf("(%8.3e,%8.3e)", real(g.last), imag(g.last))
}

func (g *GroundStateTracker) Modify(*linalg.CSR, *propagate.State, *propagate.Context, propagate.Stepper) error {
	return nil
}

func (g *GroundStateTracker) Evaluate(a *linalg.CSR, st *propagate.State, _ propagate.Stepper) error {
	if st.Step == 0 || st.Step%g.params.Every != 0 {
		return nil
	}
	shift := -1i * complex(g.params.Energy, 0)
	res, err := Search(g.solver, a, st.Psi, g.seeds, shift, g.params.MaxOuter, g.params.Retries)
	if err != nil {
		return err
	}
	g.seeds, g.last = res.Seeds, res.Overlap
	g.log.Debug().Int("step", st.Step).Int("rounds", res.Outer).Int("seeds", len(res.Seeds)).
		Str("value", fmt.Sprint(res.Value)).Float64("population", cmplx.Abs(res.Overlap)*cmplx.Abs(res.Overlap)).
		Msg("instantaneous ground state")

	if err := g.out.Float64(st.Time, cmplx.Abs(res.Overlap), cmplx.Phase(res.Overlap)); err != nil {
		return err
	}
	name := fmt.Sprintf("gs_%d", st.Step)
	if err := binio.WriteComplex128s(filepath.Join(g.folder, name+".dat"), res.Vector); err != nil {
		return err
	}
	snap := checkpoint.New(g.run, name, st.Step, st.Time, st.Psi)
	return checkpoint.Save(filepath.Join(g.folder, name+".msgpack"), snap)
}

func (g *GroundStateTracker) Close() error { return g.out.Close() }
