// propagator.go --  This file is part of goTDSE project.
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

// Package propagate integrates the time-dependent Schrödinger equation in a
// stored eigenbasis,
//
//	dψ/dt = A(t) ψ,  A(t) = -i (E(t) D + H0),
//
// with the Crank-Nicolson scheme, and calls the registered observables
// around every step.
package propagate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
)

var (
	ErrNotIdle = errors.New("propagate: propagator already ran")
	ErrShape   = errors.New("propagate: dimension mismatch")
)

// Context carries the operators of a run. It is owned by the caller and read
// by the propagator and its observables.
type Context struct {
	Dipole    *linalg.CSR
	FieldFree []complex128
	// Field is E(t). A nil Field is zero everywhere.
	Field func(float64) float64
}

func (c *Context) field(t float64) float64 {
	if c.Field == nil {
		return 0
	}
	return c.Field(t)
}

type Times struct {
	Start, End, Dt float64
}

// State is the wavefunction at Time after Step accepted steps.
type State struct {
	Psi  []complex128
	Time float64
	Step int
}

// Stepper exposes the integrator to observables.
type Stepper interface {
	Time() float64
	Step() int
	Dt() float64
	// Interpolate returns the state at t within the last accepted step.
	Interpolate(t float64) ([]complex128, error)
}

// Observable is a per-step monitor. Modify runs every time the generator
// is evaluated and may change the operator and the state in place. Evaluate
// runs once after every accepted step; Last summarizes it for the log line.
type Observable interface {
	Name() string
	Modify(a *linalg.CSR, st *State, c *Context, s Stepper) error
	Evaluate(a *linalg.CSR, st *State, s Stepper) error
	Last() string
}

type phase int

const (
	idle phase = iota
	running
	done
)

type Propagator struct {
	c       *Context
	times   Times
	obs     []Observable
	log     zerolog.Logger
	normTol float64
	phase   phase

	pattern *linalg.CSR
	diag    []int

	st    State
	prev  []complex128
	prevT float64
	dt    float64
}

type Option func(*Propagator)

func WithLogger(l zerolog.Logger) Option { return func(p *Propagator) { p.log = l } }

// WithNormTolerance sets the norm drift above which a warning is logged.
func WithNormTolerance(tol float64) Option { return func(p *Propagator) { p.normTol = tol } }

func New(c *Context, t Times, opts ...Option) (*Propagator, error) {
	if c == nil || c.Dipole == nil {
		return nil, fmt.Errorf("%w: no dipole matrix", ErrShape)
	}
	n := c.Dipole.Rows
	if c.Dipole.Cols != n || len(c.FieldFree) != n {
		return nil, fmt.Errorf("%w: dipole %dx%d, field-free %d", ErrShape, c.Dipole.Rows, c.Dipole.Cols, len(c.FieldFree))
	}
	if t.Dt <= 0 || t.End < t.Start {
		return nil, fmt.Errorf("propagate: bad time window %+v", t)
	}
	p := &Propagator{c: c, times: t, log: zerolog.Nop(), normTol: 1e-6, dt: t.Dt}
	for _, opt := range opts {
		opt(p)
	}

	// generator pattern: the dipole pattern plus the full diagonal
	entries := make([]linalg.Entry, 0, c.Dipole.NNZ()+n)
	for i := 0; i < n; i++ {
		for k := c.Dipole.RowPtr[i]; k < c.Dipole.RowPtr[i+1]; k++ {
			entries = append(entries, linalg.Entry{I: i, J: c.Dipole.ColIdx[k], V: c.Dipole.Values[k]})
		}
		entries = append(entries, linalg.Entry{I: i, J: i})
	}
	p.pattern = linalg.NewCSR(n, n, entries)
	p.diag = make([]int, n)
	for i := range p.diag {
		p.diag[i] = p.pattern.Index(i, i)
	}
	return p, nil
}

// Register adds observables. Nil entries are skipped.
func (p *Propagator) Register(obs ...Observable) {
	for _, o := range obs {
		if o != nil {
			p.obs = append(p.obs, o)
		}
	}
}

func (p *Propagator) Time() float64 { return p.st.Time }
func (p *Propagator) Step() int     { return p.st.Step }
func (p *Propagator) Dt() float64   { return p.dt }

// Interpolate linearly interpolates between the last two accepted states.
func (p *Propagator) Interpolate(t float64) ([]complex128, error) {
	switch {
	case t == p.st.Time:
		return linalg.Clone(p.st.Psi), nil
	case p.prev == nil || t < p.prevT || t > p.st.Time:
		return nil, fmt.Errorf("propagate: %g outside the last step [%g,%g]", t, p.prevT, p.st.Time)
	}
	x := complex((t-p.prevT)/(p.st.Time-p.prevT), 0)
	out := make([]complex128, len(p.prev))
	for i := range out {
		out[i] = (1-x)*p.prev[i] + x*p.st.Psi[i]
	}
	return out, nil
}

// generator writes A(t) into a and lets every observable modify it.
func (p *Propagator) generator(a *linalg.CSR, t float64, st *State) error {
	e := complex(p.c.field(t), 0)
	for k, v := range p.pattern.Values {
		a.Values[k] = v * e
	}
	for i, k := range p.diag {
		a.Values[k] += p.c.FieldFree[i]
	}
	for k := range a.Values {
		a.Values[k] *= -1i
	}
	for _, o := range p.obs {
		if err := o.Modify(a, st, p.c, p); err != nil {
			return fmt.Errorf("propagate: %s modify at t=%g: %w", o.Name(), t, err)
		}
	}
	return nil
}

// Run propagates psi from Start to End. A propagator runs once.
func (p *Propagator) Run(ctx context.Context, psi []complex128) (State, error) {
	if p.phase != idle {
		return State{}, ErrNotIdle
	}
	p.phase = running
	defer func() { p.phase = done }()

	n := p.pattern.Rows
	if len(psi) != n {
		return State{}, fmt.Errorf("%w: state has %d amplitudes, operator %d", ErrShape, len(psi), n)
	}
	p.st = State{Psi: linalg.Clone(psi), Time: p.times.Start}
	norm0 := linalg.Norm(p.st.Psi)

	steps := int(math.Ceil((p.times.End-p.times.Start)/p.times.Dt - 1e-9))
	p.log.Info().Int("states", n).Int("steps", steps).Float64("t_start", p.times.Start).
		Float64("t_end", p.times.End).Float64("dt", p.times.Dt).Int("observables", len(p.obs)).
		Msg("propagation started")

	cur, next := p.pattern.Clone(), p.pattern.Clone()
	if err := p.generator(cur, p.st.Time, &p.st); err != nil {
		return p.st, err
	}
	if err := p.monitor(cur, norm0); err != nil {
		return p.st, err
	}

	rhs := make([]complex128, n)
	for s := 0; s < steps; s++ {
		if err := ctx.Err(); err != nil {
			return p.st, err
		}
		t0 := time.Now()
		p.dt = p.times.Dt
		if s == steps-1 {
			p.dt = p.times.End - p.st.Time
		}
		h := complex(p.dt/2, 0)

		// rhs = (I + dt/2 A(t)) psi
		cur.MulVec(rhs, p.st.Psi)
		for i := range rhs {
			rhs[i] = p.st.Psi[i] + h*rhs[i]
		}
		tn := p.st.Time + p.dt
		if err := p.generator(next, tn, &p.st); err != nil {
			return p.st, err
		}
		m, err := next.ShiftedCopy(1, -h)
		if err != nil {
			return p.st, err
		}
		f, err := m.Factor(0)
		if err != nil {
			return p.st, fmt.Errorf("propagate: factor at t=%g: %w", tn, err)
		}
		psi := linalg.Clone(p.st.Psi)
		if err := f.Solve(psi, rhs); err != nil {
			return p.st, fmt.Errorf("propagate: solve at t=%g: %w", tn, err)
		}

		p.prev, p.prevT = p.st.Psi, p.st.Time
		p.st = State{Psi: psi, Time: tn, Step: s + 1}
		cur, next = next, cur

		metrics.PropagationSteps.Inc()
		metrics.StepSeconds.Observe(time.Since(t0).Seconds())
		if err := p.monitor(cur, norm0); err != nil {
			return p.st, err
		}
	}
	p.log.Info().Int("steps", p.st.Step).Float64("t", p.st.Time).
		Float64("norm-1", linalg.Norm(p.st.Psi)-1).Msg("propagation finished")
	return p.st, nil
}

func (p *Propagator) monitor(a *linalg.CSR, norm0 float64) error {
	for _, o := range p.obs {
		if err := o.Evaluate(a, &p.st, p); err != nil {
			return fmt.Errorf("propagate: %s evaluate at t=%g: %w", o.Name(), p.st.Time, err)
		}
	}
	drift := linalg.Norm(p.st.Psi) - 1
	metrics.NormDrift.Set(drift)

	ev := p.log.Info().Int("step", p.st.Step).Float64("t", p.st.Time).Float64("norm-1", drift)
	for _, o := range p.obs {
		ev = ev.Str(o.Name(), o.Last())
	}
	ev.Msg("step")

	if math.Abs(linalg.Norm(p.st.Psi)-norm0) > p.normTol {
		p.log.Warn().Int("step", p.st.Step).Float64("t", p.st.Time).Float64("drift", linalg.Norm(p.st.Psi)-norm0).
			Msg("norm drift above tolerance")
	}
	return nil
}
