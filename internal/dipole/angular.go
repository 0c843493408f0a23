// angular.go --  This file is part of goTDSE project.
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
	"math"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/grid"
)

// Selected reports whether the dipole couples a and b: |Δl| = 1 and |Δm| <= 1.
func Selected(a, b basis.Label) bool {
	return abs(a.L-b.L) == 1 && abs(a.M-b.M) <= 1
}

func abs(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}

// Angular is the angular factor of the dipole element between channels l and
// lp: 3j(l 1 lp; 0 0 0)^2 sqrt((2l+1)(2lp+1)).
func Angular(l, lp int) float64 {
	w := Wigner3j(l, 1, lp, 0, 0, 0)
	return w * w * math.Sqrt(float64((2*l+1)*(2*lp+1)))
}

// Wigner3j evaluates the 3j symbol (j1 j2 j3; m1 m2 m3) for integer
// arguments with the Racah formula.
func Wigner3j(j1, j2, j3, m1, m2, m3 int) float64 {
	if m1+m2+m3 != 0 ||
		j3 < iabs(j1-j2) || j3 > j1+j2 ||
		iabs(m1) > j1 || iabs(m2) > j2 || iabs(m3) > j3 {
		return 0
	}

	lf := func(n int) float64 {
		v, _ := math.Lgamma(float64(n + 1))
		return v
	}
	pre := (lf(j1+j2-j3)+lf(j1-j2+j3)+lf(-j1+j2+j3)-lf(j1+j2+j3+1))/2 +
		(lf(j1+m1)+lf(j1-m1)+lf(j2+m2)+lf(j2-m2)+lf(j3+m3)+lf(j3-m3))/2

	kmin := max(0, j2-j3-m1, j1-j3+m2)
	kmax := min(j1+j2-j3, j1-m1, j2+m2)
	var sum float64
	for k := kmin; k <= kmax; k++ {
		den := lf(k) + lf(j3-j2+k+m1) + lf(j3-j1+k-m2) + lf(j1+j2-j3-k) + lf(j1-k-m1) + lf(j2-k+m2)
		term := math.Exp(pre - den)
		if k%2 == 1 {
			term = -term
		}
		sum += term
	}
	if iabs(j1-j2-m3)%2 == 1 {
		sum = -sum
	}
	return sum
}

func iabs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// IntegrationWeights returns w_k = r_k Δr_k, so that sum a_k w_k b_k
// approximates the radial integral of a r b.
func IntegrationWeights(g grid.Grid) []complex128 {
	w := g.Weights()
	for k, r := range g.Points {
		w[k] *= r
	}
	return w
}

// FieldFree returns the diagonal of the field-free Hamiltonian in prototype
// order.
func FieldFree(p basis.Prototype) []complex128 {
	return p.Energies()
}
