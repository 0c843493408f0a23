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

// Package eigen implements a shift-invert subspace iteration eigensolver with
// Rayleigh-Ritz extraction for the complex operators of the linalg package.
package eigen

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sort"

	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/linalg"
)

var (
	ErrNoOperator   = errors.New("eigen: operator not set")
	ErrSearchFailed = errors.New("eigen: search failed")
)

// Which selects the order in which Ritz pairs are wanted.
type Which int

const (
	// NearestShift orders by distance to the shift.
	NearestShift Which = iota
	// SmallestReal orders by ascending real part.
	SmallestReal
)

// Pair is one converged eigenpair.
type Pair struct {
	Index    int
	Value    complex128
	Vector   []complex128
	Residual float64
}

// Solver holds the settings and results of one eigenproblem. The zero value is
// not usable, call New.
type Solver struct {
	op        linalg.Operator
	hermitian bool

	nev, ncv int
	tol      float64
	maxIter  int
	sigma    complex128
	which    Which

	weights   []complex128
	initial   [][]complex128
	deflation [][]complex128

	pairs      []Pair
	iterations int

	rng *rand.Rand
	log zerolog.Logger
}

func New() *Solver {
	return &Solver{
		nev:     1,
		tol:     1e-8,
		maxIter: 1000,
		rng:     rand.New(rand.NewPCG(1, 2)),
		log:     zerolog.Nop(),
	}
}

// SetOperator binds the operator. An operator with a Hermitian() bool method
// that reports true gets the Hermitian Rayleigh-Ritz path.
func (s *Solver) SetOperator(op linalg.Operator) {
	s.op = op
	s.hermitian = false
	if h, ok := op.(interface{ Hermitian() bool }); ok {
		s.hermitian = h.Hermitian()
	}
	s.pairs = nil
}

// SetDimensions sets the number of wanted pairs and the subspace size.
// ncv <= 0 selects max(2 nev, nev+15).
func (s *Solver) SetDimensions(nev, ncv int) {
	if nev < 1 {
		nev = 1
	}
	s.nev, s.ncv = nev, ncv
}

func (s *Solver) Dimensions() (nev, ncv int) { return s.nev, s.ncv }

func (s *Solver) SetTolerances(tol float64, maxIter int) {
	s.tol, s.maxIter = tol, max(maxIter, 1)
}

// SetShiftInvert targets the eigenvalues closest to sigma.
func (s *Solver) SetShiftInvert(sigma complex128) { s.sigma = sigma }

func (s *Solver) SetWhich(w Which) { s.which = w }

// SetInnerProduct sets the weights of the norm the returned eigenvectors are
// normalized in: sum |w_i| |x_i|^2 = 1.
func (s *Solver) SetInnerProduct(w []complex128) { s.weights = w }

// SetInitialVectors seeds the search subspace. The vectors are copied.
func (s *Solver) SetInitialVectors(vs ...[]complex128) {
	s.initial = s.initial[:0]
	for _, v := range vs {
		s.initial = append(s.initial, linalg.Clone(v))
	}
}

// SetDeflationSpace excludes the span of vs from the search.
func (s *Solver) SetDeflationSpace(vs ...[]complex128) {
	s.deflation = s.deflation[:0]
	for _, v := range vs {
		s.deflation = append(s.deflation, linalg.Clone(v))
	}
}

func (s *Solver) SetLogger(l zerolog.Logger) { s.log = l }

// Reset drops the results and initial vectors of the previous solve. The
// operator and all settings are kept.
func (s *Solver) Reset() {
	s.pairs = nil
	s.initial = nil
	s.iterations = 0
}

func (s *Solver) NumConverged() int { return len(s.pairs) }

// Pair returns the i-th converged pair in the order selected by SetWhich.
func (s *Solver) Pair(i int) Pair { return s.pairs[i] }

// Iterations returns the iteration count of the last solve.
func (s *Solver) Iterations() int { return s.iterations }

func (s *Solver) subspace(n int) (nev, ncv int) {
	avail := n - len(s.deflation)
	if avail < 1 {
		avail = 1
	}
	nev = min(s.nev, avail)
	ncv = s.ncv
	if ncv <= 0 {
		ncv = max(2*nev, nev+15)
	}
	return nev, max(nev, min(ncv, avail))
}

func (s *Solver) random(n int) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(s.rng.Float64()-0.5, 0)
	}
	return v
}

// fill orthonormalizes vs against q and tops it up with random vectors until
// it holds k vectors.
func (s *Solver) fill(q, vs [][]complex128, n, k int) [][]complex128 {
	vs = linalg.Orthonormalize(q, vs, 1e-10)
	for tries := 0; len(vs) < k && tries < 4*k; tries++ {
		against := append(append([][]complex128(nil), q...), vs...)
		vs = append(vs, linalg.Orthonormalize(against, [][]complex128{s.random(n)}, 1e-10)...)
	}
	return vs
}

// Solve runs shift-invert subspace iteration until nev pairs converge or the
// iteration limit is reached. A pair (θ, x) with ‖x‖ = 1 converges when
// ‖Ax − θx‖ ≤ tol·|θ| + 64·ε·‖A‖∞.
func (s *Solver) Solve() error {
	if s.op == nil {
		return ErrNoOperator
	}
	n := s.op.Dim()
	nev, ncv := s.subspace(n)
	s.pairs = nil

	f, err := s.op.Factor(s.sigma)
	if err != nil {
		return fmt.Errorf("eigen: factor at shift %v: %w", s.sigma, err)
	}

	q := linalg.Orthonormalize(nil, cloneAll(s.deflation), 1e-10)
	v := s.fill(q, cloneAll(s.initial), n, ncv)
	floor := 64 * eps * s.op.NormInf()

	var (
		vals   []complex128
		ritz   [][]complex128
		res    []float64
		aw     = make([][]complex128, 0, ncv)
		wanted = nev
	)
	for it := 1; it <= s.maxIter; it++ {
		s.iterations = it
		w := make([][]complex128, len(v))
		for j, x := range v {
			w[j] = make([]complex128, n)
			if err := f.Solve(w[j], x); err != nil {
				return fmt.Errorf("eigen: shifted solve: %w", err)
			}
		}
		w = s.fill(q, w, n, ncv)
		k := len(w)

		aw = aw[:0]
		for _, x := range w {
			y := make([]complex128, n)
			s.op.MulVec(y, x)
			aw = append(aw, y)
		}
		m := make([]complex128, k*k)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				m[i*k+j] = linalg.Dot(w[i], aw[j])
			}
		}

		vals, ritz, err = s.project(k, m)
		if err != nil {
			return err
		}
		order := s.order(vals)

		res = res[:0]
		next := make([][]complex128, 0, len(order))
		sortedVals := make([]complex128, 0, len(order))
		converged := 0
		for rank, idx := range order {
			x := make([]complex128, n)
			r := make([]complex128, n)
			for j, c := range ritz[idx] {
				linalg.Axpy(c, w[j], x)
				linalg.Axpy(c, aw[j], r)
			}
			theta := vals[idx]
			linalg.Axpy(-theta, x, r)
			rn := linalg.Norm(r) / linalg.Norm(x)
			res = append(res, rn)
			next = append(next, x)
			sortedVals = append(sortedVals, theta)
			if rank < wanted && rn <= s.tol*cmplx.Abs(theta)+floor {
				converged++
			}
		}
		v, vals = next, sortedVals

		if len(res) > 0 && (it == 1 || it%50 == 0 || converged >= wanted) {
			s.log.Debug().Int("iteration", it).Int("converged", converged).Int("nev", wanted).
				Float64("residual", res[0]).Msg("subspace iteration")
		}
		if converged >= wanted {
			break
		}
	}

	for i := 0; i < wanted && i < len(v); i++ {
		if res[i] > s.tol*cmplx.Abs(vals[i])+floor {
			continue
		}
		x := v[i]
		s.normalize(x)
		s.pairs = append(s.pairs, Pair{Index: len(s.pairs), Value: vals[i], Vector: x, Residual: res[i]})
	}
	if len(s.pairs) < wanted {
		s.log.Warn().Int("converged", len(s.pairs)).Int("nev", wanted).Int("iterations", s.iterations).
			Msg("eigensolver NOT converged for all requested pairs")
	}
	return nil
}

const eps = 0x1p-52

func (s *Solver) project(k int, m []complex128) ([]complex128, [][]complex128, error) {
	if s.hermitian {
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				avg := (m[i*k+j] + cmplx.Conj(m[j*k+i])) / 2
				m[i*k+j], m[j*k+i] = avg, cmplx.Conj(avg)
			}
			m[i*k+i] = complex(real(m[i*k+i]), 0)
		}
		re, vecs, err := linalg.EigHermitian(k, m)
		if err != nil {
			return nil, nil, err
		}
		vals := make([]complex128, len(re))
		for i, r := range re {
			vals[i] = complex(r, 0)
		}
		return vals, vecs, nil
	}
	return linalg.EigGeneral(k, m)
}

func (s *Solver) order(vals []complex128) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := vals[idx[a]], vals[idx[b]]
		if s.which == SmallestReal {
			return real(va) < real(vb)
		}
		return cmplx.Abs(va-s.sigma) < cmplx.Abs(vb-s.sigma)
	})
	return idx
}

// normalize scales x to unit weighted norm and rotates its largest component
// onto the positive real axis.
func (s *Solver) normalize(x []complex128) {
	var big complex128
	for _, c := range x {
		if cmplx.Abs(c) > cmplx.Abs(big) {
			big = c
		}
	}
	phase := complex128(1)
	if big != 0 {
		phase = cmplx.Conj(big) / complex(cmplx.Abs(big), 0)
	}
	nrm := linalg.Norm(x)
	if s.weights != nil {
		nrm = linalg.WNorm(s.weights, x)
	}
	if nrm == 0 || math.IsNaN(nrm) {
		return
	}
	linalg.Scale(phase/complex(nrm, 0), x)
}

func cloneAll(vs [][]complex128) [][]complex128 {
	out := make([][]complex128, len(vs))
	for i, v := range vs {
		out[i] = linalg.Clone(v)
	}
	return out
}
