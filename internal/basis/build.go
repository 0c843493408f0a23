// build.go --  This file is part of goTDSE project.
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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/config"
	"github.com/MirzaevaIV/goTDSE/internal/grid"
	"github.com/MirzaevaIV/goTDSE/internal/hamiltonian"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
)

const (
	GridFile      = "grid.dat"
	PrototypeFile = "prototype.dat"
	PrototypeText = "prototype.txt"
)

// Build computes the basis for l = 0..LMax with NMax-l states per channel and
// writes the vectors, the grid and the prototype into p.Folder.
func Build(ctx context.Context, p config.BasisParams, log zerolog.Logger) (Prototype, error) {
	if p.NMax <= p.LMax {
		return nil, fmt.Errorf("%w: nmax=%d must exceed lmax=%d", ErrPrecondition, p.NMax, p.LMax)
	}
	if err := os.MkdirAll(p.Folder, 0o755); err != nil {
		return nil, fmt.Errorf("basis: %w", err)
	}

	var (
		g   grid.Grid
		err error
	)
	if p.Complex() {
		g, err = grid.Absorbing(p.Points, p.RMax, p.ECSFraction, p.ECSAngle)
	} else {
		g, err = grid.Uniform(p.Points, p.RMax)
	}
	if err != nil {
		return nil, err
	}

	a, err := hamiltonian.New(g, hamiltonian.Coulomb(p.Charge), 0)
	if err != nil {
		return nil, err
	}
	ph := DefaultPhases()
	ph.GroundShift = p.GroundShift
	ph.RefineNCV = p.RefineNCV
	ph.Retries = p.Retries
	s := NewSolver(a, p.NMax, WithPhases(ph), WithLogger(log))

	log.Info().Int("points", g.Len()).Float64("rmax", p.RMax).Bool("complex", g.Complex).
		Int("nmax", p.NMax).Int("lmax", p.LMax).Msg("building basis")

	var proto Prototype
	for l := 0; l <= p.LMax; l++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if l != a.L() {
			a.SetL(l)
		}
		s.SetStates(p.NMax - l)
		e0, err := s.Find()
		if err != nil {
			return nil, err
		}
		if err := s.SaveBasis(p.Folder); err != nil {
			return nil, err
		}
		proto = s.AddLabels(proto, NewChannelInserter(l))

		elapsed := time.Since(start)
		metrics.ChannelSeconds.Observe(elapsed.Seconds())
		log.Info().Int("l", l).Int("states", s.Converged()).Int("wanted", p.NMax-l).
			Float64("e0_re", real(e0)).Float64("e0_im", imag(e0)).
			Dur("elapsed", elapsed).Msg("channel done")
		if s.Converged() < p.NMax-l {
			log.Warn().Int("l", l).Int("states", s.Converged()).Msg("channel has fewer states than requested")
		}
	}

	if err := proto.Validate(); err != nil {
		return nil, err
	}
	if err := g.Save(filepath.Join(p.Folder, GridFile)); err != nil {
		return nil, err
	}
	if err := proto.Save(filepath.Join(p.Folder, PrototypeFile)); err != nil {
		return nil, err
	}
	if err := proto.WriteText(filepath.Join(p.Folder, PrototypeText)); err != nil {
		return nil, err
	}
	if err := config.Write(p.Folder, "basis", p); err != nil {
		return nil, err
	}
	metrics.BasisStates.Set(float64(len(proto)))
	return proto, nil
}

// LoadGrid reads the grid stored next to a basis built with p.
func LoadGrid(p config.BasisParams, folder string) (grid.Grid, error) {
	return grid.Load(filepath.Join(folder, GridFile), p.Complex())
}
