// laser_test.go --  This file is part of goTDSE project.
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

package laser

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MirzaevaIV/goTDSE/internal/config"
)

func TestSinSquared(t *testing.T) {
	s := FromParams(config.Default().Laser)
	d := s.Duration()
	assert.InDelta(t, 10*2*math.Pi/0.057, d, 1e-9)

	f := s.Field()
	assert.Equal(t, 0.0, f(0))
	assert.Equal(t, 0.0, f(-1))
	assert.Equal(t, 0.0, f(d))
	assert.Equal(t, 0.0, f(d+5))

	// the envelope peaks at half the pulse with sqrt(I)
	assert.InDelta(t, math.Sqrt(0.001), s.Envelope(d/2), 1e-12)
	for _, tt := range []float64{d / 7, d / 3, 0.9 * d} {
		assert.LessOrEqual(t, math.Abs(f(tt)), math.Sqrt(0.001))
		assert.InDelta(t, s.Envelope(tt)*math.Sin(0.057*tt), f(tt), 1e-15)
	}
}

func TestCarrierEnvelopePhase(t *testing.T) {
	s := SinSquared{Frequency: 1, CEP: math.Pi / 2, Cycles: 2, Intensity: 4}
	tt := 2 * math.Pi
	assert.InDelta(t, 2, s.At(tt), 1e-12)
}
