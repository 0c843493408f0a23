// metrics.go --  This file is part of goTDSE project.
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

// Package metrics collects counters for a batch run. There is no scrape
// endpoint; the registry is dumped in the text exposition format at the end of
// every stage.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector of this package.
var Registry = prometheus.NewRegistry()

var (
	// EigenIterations counts subspace iterations by stage ("ground", "refine", "gs_tracker")
	EigenIterations = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "gotdse_eigen_iterations_total",
		Help: "Subspace iterations performed by the eigensolver",
	}, []string{"stage"})

	// EigenEscalations counts retries with an enlarged subspace
	EigenEscalations = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "gotdse_eigen_escalations_total",
		Help: "Eigensolver retries after no pair converged",
	}, []string{"stage"})

	ChannelSeconds = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "gotdse_basis_channel_seconds",
		Help:    "Wall time to solve one angular channel",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	BasisStates = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "gotdse_basis_states",
		Help: "Number of states in the current prototype",
	})

	DipoleEntries = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "gotdse_dipole_entries_total",
		Help: "Nonzero off-diagonal dipole elements computed",
	})

	// CacheRemaps counts basis file remaps by side ("left", "right")
	CacheRemaps = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "gotdse_basis_cache_remaps_total",
		Help: "Basis vector file remaps",
	}, []string{"side"})

	PropagationSteps = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "gotdse_propagation_steps_total",
		Help: "Accepted time steps",
	})

	StepSeconds = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "gotdse_propagation_step_seconds",
		Help:    "Wall time of one Crank-Nicolson step",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})

	NormDrift = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "gotdse_norm_drift",
		Help: "Last observed |psi| - 1",
	})
)

// WriteTextfile dumps the registry to path.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
