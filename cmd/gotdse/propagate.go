// propagate.go --  This file is part of goTDSE project.
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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/checkpoint"
	"github.com/MirzaevaIV/goTDSE/internal/config"
	"github.com/MirzaevaIV/goTDSE/internal/dipole"
	"github.com/MirzaevaIV/goTDSE/internal/laser"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
	"github.com/MirzaevaIV/goTDSE/internal/observables"
	"github.com/MirzaevaIV/goTDSE/internal/propagate"
)

// FinalFile is the checkpoint written when a propagation ends.
const FinalFile = "final.msgpack"

// propagateStage loads the operators written by the dipole stage and
// propagates the configured initial state through the pulse.
func propagateStage(ctx context.Context, c config.Config) (propagate.State, error) {
	hp, pp := c.Hamiltonian, c.Propagate

	proto, err := basis.LoadPrototype(filepath.Join(hp.Folder, basis.PrototypeFile))
	if err != nil {
		return propagate.State{}, err
	}
	d, err := linalg.LoadCSR(filepath.Join(hp.Folder, dipole.MatrixFile))
	if err != nil {
		return propagate.State{}, err
	}
	h0, err := binio.ReadComplex128s(filepath.Join(hp.Folder, dipole.EnergyFile))
	if err != nil {
		return propagate.State{}, err
	}
	if len(proto) == 0 || d.Rows != len(proto) || len(h0) != len(proto) {
		return propagate.State{}, fmt.Errorf("%w: prototype %d, dipole %d, energies %d",
			propagate.ErrShape, len(proto), d.Rows, len(h0))
	}
	if err := os.MkdirAll(pp.Folder, 0o755); err != nil {
		return propagate.State{}, fmt.Errorf("propagate: %w", err)
	}

	pulse := laser.FromParams(c.Laser)
	times := propagate.Times{Start: pp.TStart, End: endTime(pp, pulse), Dt: pp.Dt}
	p, err := propagate.New(&propagate.Context{Dipole: d, FieldFree: h0, Field: pulse.Field()}, times,
		propagate.WithLogger(log), propagate.WithNormTolerance(pp.NormTolerance))
	if err != nil {
		return propagate.State{}, err
	}

	run := uuid.New()
	obs, closers, err := observers(c, proto, d, pulse, run)
	defer func() {
		for _, cl := range closers {
			if cerr := cl.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("cannot close observer output")
			}
		}
	}()
	if err != nil {
		return propagate.State{}, err
	}
	p.Register(obs...)

	psi, err := initialState(pp.Wavefunction, len(proto))
	if err != nil {
		return propagate.State{}, err
	}
	log.Info().Str("run_id", run.String()).Int("states", len(proto)).Float64("t_end", times.End).
		Float64("pulse", pulse.Duration()).Msg("propagation configured")

	st, runErr := p.Run(ctx, psi)
	if st.Psi != nil {
		label := "final"
		if runErr != nil {
			label = "interrupted"
		}
		if err := checkpoint.Save(filepath.Join(pp.Folder, FinalFile),
			checkpoint.New(run, label, st.Step, st.Time, st.Psi)); err != nil {
			return st, errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return st, runErr
	}
	return st, config.Write(pp.Folder, "propagate", c)
}

// endTime resolves a negative end time to the end of the pulse.
func endTime(pp config.PropagateParams, pulse laser.SinSquared) float64 {
	if pp.TEnd < 0 {
		return pulse.Duration()
	}
	return pp.TEnd
}

// observers builds the enabled observables in the order their hooks run.
func observers(c config.Config, proto basis.Prototype, d *linalg.CSR, pulse laser.SinSquared, run uuid.UUID) ([]propagate.Observable, []io.Closer, error) {
	var (
		obs     []propagate.Observable
		closers []io.Closer
		folder  = c.Propagate.Folder
	)
	if c.Absorber.Enabled {
		mask, err := observables.Mask(proto, c.Absorber.NSize, c.Absorber.LSize, c.Absorber.Type)
		if err != nil {
			return nil, closers, err
		}
		obs = append(obs, observables.NewMaskAbsorber(mask))
	}
	if c.Propagate.FieldTracker {
		ft, err := observables.NewFieldTracker(folder, pulse.Field(), log)
		if err != nil {
			return nil, closers, err
		}
		obs, closers = append(obs, ft), append(closers, ft)
	}
	if c.DipoleObserver.Enabled {
		var labels observables.LabelCounter
		sections := observables.Sections(proto, c.DipoleObserver.NSections, c.DipoleObserver.ESections, &labels)
		dt, err := observables.NewDipoleTracker(folder, d, sections)
		if err != nil {
			return nil, closers, err
		}
		obs, closers = append(obs, dt), append(closers, dt)
	}
	if c.GroundState.Enabled {
		gs, err := observables.NewGroundStateTracker(folder, c.GroundState, run, log)
		if err != nil {
			return nil, closers, err
		}
		obs, closers = append(obs, gs), append(closers, gs)
	}
	return obs, closers, nil
}

// initialState reads the starting wavefunction from path, a checkpoint or a
// raw complex128 file. Without a path the first basis state is populated.
func initialState(path string, n int) ([]complex128, error) {
	if path == "" {
		psi := make([]complex128, n)
		psi[0] = 1
		return psi, nil
	}
	var (
		psi []complex128
		err error
	)
	if strings.HasSuffix(path, ".msgpack") {
		var s checkpoint.Snapshot
		s, err = checkpoint.Load(path)
		psi = s.Psi()
	} else {
		psi, err = binio.ReadComplex128s(path)
	}
	if err != nil {
		return nil, err
	}
	if len(psi) != n {
		return nil, fmt.Errorf("%w: %s holds %d amplitudes, basis has %d", propagate.ErrShape, path, len(psi), n)
	}
	return psi, nil
}
