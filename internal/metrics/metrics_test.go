// metrics_test.go --  This file is part of goTDSE project.
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

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	EigenIterations.WithLabelValues("ground").Add(3)
	DipoleEntries.Inc()
	assert.Equal(t, 3.0, testutil.ToFloat64(EigenIterations.WithLabelValues("ground")))

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gotdse_eigen_iterations_total{stage="ground"} 3`)
	assert.Contains(t, string(data), "gotdse_dipole_entries_total 1")
}
