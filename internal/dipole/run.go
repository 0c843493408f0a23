// run.go --  This file is part of goTDSE project.
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
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/basiscache"
	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/config"
	"github.com/MirzaevaIV/goTDSE/internal/linalg"
)

const (
	MatrixFile = "dipole.dat"
	EnergyFile = "energy.dat"
)

// Run reads the basis in hp.BasisFolder, restricts it to the limits of hp and
// writes the restricted prototype, the dipole matrix and the field-free
// energies into hp.Folder.
func Run(ctx context.Context, hp config.HamiltonianParams, log zerolog.Logger) (basis.Prototype, *linalg.CSR, error) {
	var bp config.BasisParams
	if err := config.Read(hp.BasisFolder, "basis", &bp); err != nil {
		return nil, nil, err
	}
	full, err := basis.LoadPrototype(filepath.Join(hp.BasisFolder, basis.PrototypeFile))
	if err != nil {
		return nil, nil, err
	}
	g, err := basis.LoadGrid(bp, hp.BasisFolder)
	if err != nil {
		return nil, nil, err
	}

	proto := basis.Shrink(full, basis.Label{
		N: int32(hp.NMax), L: int32(hp.LMax), M: int32(hp.MMax), E: complex(hp.EMax, 0),
	})
	if len(proto) == 0 {
		return nil, nil, fmt.Errorf("%w: no basis state within nmax=%d lmax=%d emax=%g",
			basis.ErrPrecondition, hp.NMax, hp.LMax, hp.EMax)
	}
	log.Info().Int("basis_states", len(full)).Int("kept", len(proto)).Msg("prototype restricted")

	if err := os.MkdirAll(hp.Folder, 0o755); err != nil {
		return nil, nil, fmt.Errorf("dipole: %w", err)
	}
	if err := proto.Save(filepath.Join(hp.Folder, basis.PrototypeFile)); err != nil {
		return nil, nil, err
	}
	if err := proto.WriteText(filepath.Join(hp.Folder, basis.PrototypeText)); err != nil {
		return nil, nil, err
	}

	b := Builder{
		Prototype: proto,
		Grid:      g,
		Layout:    basiscache.Layout{Folder: hp.BasisFolder, Biorthogonal: bp.Complex()},
		Workers:   hp.Workers,
		Stream:    hp.Stream,
		QueueSize: hp.QueueSize,
		Log:       log,
	}
	d, err := b.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Save(filepath.Join(hp.Folder, MatrixFile)); err != nil {
		return nil, nil, err
	}
	if err := binio.WriteComplex128s(filepath.Join(hp.Folder, EnergyFile), FieldFree(proto)); err != nil {
		return nil, nil, err
	}
	if err := config.Write(hp.Folder, "hamiltonian", hp); err != nil {
		return nil, nil, err
	}
	return proto, d, nil
}
