// checkpoint.go --  This file is part of goTDSE project.
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

// Package checkpoint stores wavefunction snapshots as msgpack documents.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
)

var ErrBadSnapshot = errors.New("checkpoint: bad snapshot")

// Snapshot is the state of one propagation at one time. Amplitudes are kept
// as separate real and imaginary parts.
type Snapshot struct {
	RunID   string    `msgpack:"run_id"`
	Label   string    `msgpack:"label"`
	Step    int       `msgpack:"step"`
	Time    float64   `msgpack:"time"`
	Created time.Time `msgpack:"created"`
	Re      []float64 `msgpack:"re"`
	Im      []float64 `msgpack:"im"`
}

// New returns a snapshot of psi. psi is copied.
func New(run uuid.UUID, label string, step int, t float64, psi []complex128) Snapshot {
	s := Snapshot{
		RunID:   run.String(),
		Label:   label,
		Step:    step,
		Time:    t,
		Created: time.Now().UTC(),
		Re:      make([]float64, len(psi)),
		Im:      make([]float64, len(psi)),
	}
	for i, c := range psi {
		s.Re[i], s.Im[i] = real(c), imag(c)
	}
	return s
}

func (s Snapshot) Psi() []complex128 {
	psi := make([]complex128, len(s.Re))
	for i := range psi {
		psi[i] = complex(s.Re[i], s.Im[i])
	}
	return psi
}

func Save(path string, s Snapshot) error {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	return binio.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: %w", err)
	}
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrBadSnapshot, path, err)
	}
	if _, err := uuid.Parse(s.RunID); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: run id: %v", ErrBadSnapshot, path, err)
	}
	if len(s.Re) != len(s.Im) {
		return Snapshot{}, fmt.Errorf("%w: %s: %d real and %d imaginary parts", ErrBadSnapshot, path, len(s.Re), len(s.Im))
	}
	return s, nil
}
