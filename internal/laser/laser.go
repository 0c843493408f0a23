// laser.go --  This file is part of goTDSE project.
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

// Package laser defines the driving field E(t).
package laser

import (
	"math"

	"github.com/MirzaevaIV/goTDSE/internal/config"
)

// SinSquared is a pulse of Cycles optical cycles with a sin² envelope:
//
//	E(t) = sqrt(I) sin²(ωt / (2 cycles)) sin(ωt + cep),  0 < t < cycles 2π/ω
//
// and zero outside.
type SinSquared struct {
	Frequency float64
	CEP       float64
	Cycles    float64
	Intensity float64
}

func FromParams(p config.LaserParams) SinSquared {
	return SinSquared{Frequency: p.Frequency, CEP: p.CEP, Cycles: p.Cycles, Intensity: p.Intensity}
}

// Duration is the length of the pulse.
func (s SinSquared) Duration() float64 {
	return s.Cycles * 2 * math.Pi / s.Frequency
}

func (s SinSquared) Envelope(t float64) float64 {
	if t <= 0 || t >= s.Duration() {
		return 0
	}
	e := math.Sin(s.Frequency * t / (2 * s.Cycles))
	return math.Sqrt(s.Intensity) * e * e
}

func (s SinSquared) At(t float64) float64 {
	return s.Envelope(t) * math.Sin(s.Frequency*t+s.CEP)
}

// Field returns the pulse as a plain function of time.
func (s SinSquared) Field() func(float64) float64 { return s.At }
