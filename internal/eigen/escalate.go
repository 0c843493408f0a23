// escalate.go --  This file is part of goTDSE project.
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

package eigen

import "fmt"

// DefaultRetries bounds the escalation loop of SolveEscalating.
const DefaultRetries = 6

// SolveEscalating solves s and, while no pair converges, resets the solver,
// doubles the requested count and the subspace size and tries again. After
// maxRetries escalations it gives up with ErrSearchFailed. The number of
// escalations performed is returned.
func SolveEscalating(s *Solver, maxRetries int) (int, error) {
	for retry := 0; ; retry++ {
		if err := s.Solve(); err != nil {
			return retry, err
		}
		if s.NumConverged() > 0 {
			return retry, nil
		}
		if retry == maxRetries {
			return retry, fmt.Errorf("%w: no eigenpair converged after %d escalations (nev=%d, ncv=%d)",
				ErrSearchFailed, retry, s.nev, s.ncv)
		}
		nev, ncv := s.subspace(s.op.Dim())
		s.log.Warn().Int("retry", retry+1).Int("nev", 2*nev).Int("ncv", 2*ncv).
			Msg("no eigenpair converged, enlarging the search")
		seeds := s.initial
		s.Reset()
		s.initial = seeds
		s.SetDimensions(2*nev, 2*ncv)
	}
}
