// solver.go --  This file is part of goTDSE project.
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

package basis

import (
	"errors"
	"fmt"
	"math/cmplx"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/eigen"
	"github.com/MirzaevaIV/goTDSE/internal/hamiltonian"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
)

var ErrPrecondition = errors.New("basis: precondition violated")

// Strategy extracts the eigenbasis of the current channel of an assembler.
type Strategy interface {
	// Find solves the channel and returns its ground eigenvalue.
	Find() (complex128, error)
	// SetStates sets how many states the next Find keeps.
	SetStates(n int)
	// AddLabels appends a label for every kept state, lowest real part first.
	AddLabels(p Prototype, ins LabelInserter) Prototype
	// SaveBasis writes the kept vectors of the current channel into folder.
	SaveBasis(folder string) error
	// Converged reports how many states the last Find kept.
	Converged() int
}

// Phases are the settings of the two-phase search: a loose solve for the
// ground state near GroundShift, then a tight solve for all states shifted at
// the ground eigenvalue and seeded with its vector.
type Phases struct {
	GroundShift float64
	GroundTol   float64
	GroundIter  int
	RefineTol   float64
	RefineIter  int
	RefineNCV   int
	Retries     int
}

func DefaultPhases() Phases {
	return Phases{
		GroundShift: -10,
		GroundTol:   1e-2,
		GroundIter:  400,
		RefineTol:   1e-16,
		RefineIter:  1000,
		RefineNCV:   600,
		Retries:     eigen.DefaultRetries,
	}
}

type options struct {
	phases Phases
	log    zerolog.Logger
}

type Option func(*options)

func WithPhases(p Phases) Option { return func(o *options) { o.phases = p } }

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// NewSolver picks the strategy for the assembler: a single solver when the
// operator is Hermitian, a left/right pair otherwise.
func NewSolver(a *hamiltonian.Assembler, nstates int, opts ...Option) Strategy {
	o := options{phases: DefaultPhases(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if a.Hermitian() {
		s := eigen.New()
		s.SetLogger(o.log)
		return &HermitianSolver{a: a, s: s, nstates: nstates, phases: o.phases, log: o.log}
	}
	right, left := eigen.New(), eigen.New()
	right.SetLogger(o.log.With().Str("side", "right").Logger())
	left.SetLogger(o.log.With().Str("side", "left").Logger())
	return &BiorthogonalSolver{a: a, right: right, left: left, nstates: nstates, phases: o.phases, log: o.log}
}

// twoPhase runs the ground and refine phases on s and returns the converged
// pairs sorted by real part.
func twoPhase(s *eigen.Solver, op linalg.Operator, w []complex128, shift complex128, nstates int, ph Phases) ([]eigen.Pair, error) {
	s.Reset()
	s.SetOperator(op)
	s.SetInnerProduct(w)
	s.SetDeflationSpace()

	s.SetDimensions(1, 0)
	s.SetTolerances(ph.GroundTol, ph.GroundIter)
	s.SetShiftInvert(shift)
	if err := solve(s, ph.Retries, "ground"); err != nil {
		return nil, err
	}
	ground := s.Pair(0)

	s.Reset()
	s.SetDimensions(nstates, max(nstates, ph.RefineNCV))
	s.SetTolerances(ph.RefineTol, ph.RefineIter)
	s.SetShiftInvert(ground.Value)
	s.SetInitialVectors(ground.Vector)
	if err := solve(s, ph.Retries, "refine"); err != nil {
		return nil, err
	}

	pairs := make([]eigen.Pair, s.NumConverged())
	for i := range pairs {
		pairs[i] = s.Pair(i)
	}
	sort.SliceStable(pairs, func(i, j int) bool { return real(pairs[i].Value) < real(pairs[j].Value) })
	return pairs, nil
}

func solve(s *eigen.Solver, retries int, stage string) error {
	n, err := eigen.SolveEscalating(s, retries)
	metrics.EigenIterations.WithLabelValues(stage).Add(float64(s.Iterations()))
	metrics.EigenEscalations.WithLabelValues(stage).Add(float64(n))
	if err != nil {
		return fmt.Errorf("basis: %s phase: %w", stage, err)
	}
	return nil
}

// HermitianSolver solves real-grid channels with one eigensolver.
type HermitianSolver struct {
	a       *hamiltonian.Assembler
	s       *eigen.Solver
	nstates int
	phases  Phases
	log     zerolog.Logger

	pairs []eigen.Pair
}

func (h *HermitianSolver) SetStates(n int) { h.nstates = n }

func (h *HermitianSolver) Find() (complex128, error) {
	h.pairs = nil
	if h.nstates < 1 {
		return 0, fmt.Errorf("%w: nstates=%d for l=%d", ErrPrecondition, h.nstates, h.a.L())
	}
	pairs, err := twoPhase(h.s, h.a.Operator(), h.a.Grid().Weights(), complex(h.phases.GroundShift, 0), h.nstates, h.phases)
	if err != nil {
		return 0, fmt.Errorf("l=%d: %w", h.a.L(), err)
	}
	h.pairs = pairs[:min(len(pairs), h.nstates)]
	return h.pairs[0].Value, nil
}

func (h *HermitianSolver) Converged() int { return len(h.pairs) }

func (h *HermitianSolver) AddLabels(p Prototype, ins LabelInserter) Prototype {
	for _, pr := range h.pairs {
		p = append(p, ins.Insert(pr.Value))
	}
	return p
}

// SaveBasis writes l_<l>.dat holding the real parts of the vectors.
func (h *HermitianSolver) SaveBasis(folder string) error {
	n := h.a.Grid().Len()
	data := make([]float64, 0, len(h.pairs)*n)
	for _, pr := range h.pairs {
		for _, c := range pr.Vector {
			data = append(data, real(c))
		}
	}
	return binio.WriteFloat64s(RealFile(folder, h.a.L()), data)
}

// BiorthogonalSolver solves complex-grid channels: the right eigenproblem on
// H and the left one on its Hermitian transpose.
type BiorthogonalSolver struct {
	a           *hamiltonian.Assembler
	right, left *eigen.Solver
	nstates     int
	phases      Phases
	log         zerolog.Logger

	rpairs, lpairs []eigen.Pair
}

func (b *BiorthogonalSolver) SetStates(n int) { b.nstates = n }

func (b *BiorthogonalSolver) Find() (complex128, error) {
	b.rpairs, b.lpairs = nil, nil
	if b.nstates < 1 {
		return 0, fmt.Errorf("%w: nstates=%d for l=%d", ErrPrecondition, b.nstates, b.a.L())
	}
	w := b.a.Grid().Weights()
	shift := complex(b.phases.GroundShift, 0)
	rp, err := twoPhase(b.right, b.a.Operator(), w, shift, b.nstates, b.phases)
	if err != nil {
		return 0, fmt.Errorf("l=%d right: %w", b.a.L(), err)
	}
	cw := make([]complex128, len(w))
	for i, x := range w {
		cw[i] = cmplx.Conj(x)
	}
	lp, err := twoPhase(b.left, b.a.Transpose(), cw, cmplx.Conj(shift), b.nstates, b.phases)
	if err != nil {
		return 0, fmt.Errorf("l=%d left: %w", b.a.L(), err)
	}

	b.match(rp, lp, w)
	if len(b.rpairs) == 0 {
		return 0, fmt.Errorf("%w: l=%d: no left eigenvector matches a right one", eigen.ErrSearchFailed, b.a.L())
	}
	return b.rpairs[0].Value, nil
}

// match pairs every right vector with the unused left vector whose value is
// closest to its conjugate and scales the left one so that sum conj(l) w r = 1.
func (b *BiorthogonalSolver) match(rp, lp []eigen.Pair, w []complex128) {
	used := make([]bool, len(lp))
	for _, r := range rp {
		if len(b.rpairs) == b.nstates {
			break
		}
		best, dist := -1, 0.0
		for j, l := range lp {
			if used[j] {
				continue
			}
			if d := cmplx.Abs(l.Value - cmplx.Conj(r.Value)); best < 0 || d < dist {
				best, dist = j, d
			}
		}
		if best < 0 || dist > 1e-6*max(1, cmplx.Abs(r.Value)) {
			b.log.Warn().Int("l", b.a.L()).Str("value", fmt.Sprint(r.Value)).Msg("right eigenvalue without left partner, dropped")
			continue
		}
		used[best] = true
		l := lp[best]
		ip := linalg.WDot(w, l.Vector, r.Vector)
		if ip == 0 {
			continue
		}
		l.Vector = linalg.Clone(l.Vector)
		linalg.Scale(1/cmplx.Conj(ip), l.Vector)
		b.rpairs = append(b.rpairs, r)
		b.lpairs = append(b.lpairs, l)
	}
}

func (b *BiorthogonalSolver) Converged() int { return len(b.rpairs) }

func (b *BiorthogonalSolver) AddLabels(p Prototype, ins LabelInserter) Prototype {
	for _, pr := range b.rpairs {
		p = append(p, ins.Insert(pr.Value))
	}
	return p
}

// SaveBasis writes the right vectors to l_<l>_r.dat and the conjugated left
// vectors to l_<l>_l.dat.
func (b *BiorthogonalSolver) SaveBasis(folder string) error {
	n := b.a.Grid().Len()
	rdata := make([]complex128, 0, len(b.rpairs)*n)
	ldata := make([]complex128, 0, len(b.lpairs)*n)
	for i := range b.rpairs {
		rdata = append(rdata, b.rpairs[i].Vector...)
		for _, c := range b.lpairs[i].Vector {
			ldata = append(ldata, cmplx.Conj(c))
		}
	}
	if err := binio.WriteComplex128s(RightFile(folder, b.a.L()), rdata); err != nil {
		return err
	}
	return binio.WriteComplex128s(LeftFile(folder, b.a.L()), ldata)
}

func RealFile(folder string, l int) string {
	return filepath.Join(folder, fmt.Sprintf("l_%d.dat", l))
}

func RightFile(folder string, l int) string {
	return filepath.Join(folder, fmt.Sprintf("l_%d_r.dat", l))
}

func LeftFile(folder string, l int) string {
	return filepath.Join(folder, fmt.Sprintf("l_%d_l.dat", l))
}
