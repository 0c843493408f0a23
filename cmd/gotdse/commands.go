// commands.go --  This file is part of goTDSE project.
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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MirzaevaIV/goTDSE/internal/basis"
	"github.com/MirzaevaIV/goTDSE/internal/dipole"
)

var (
	rootCmd = &cobra.Command{
		Use:   "gotdse",
		Short: "Time-dependent Schrödinger equation in a radial eigenbasis",
		Long: `gotdse computes the field-free eigenbasis of a radial one-electron
problem, assembles the dipole coupling between its states and propagates a
wavefunction in that basis under a laser pulse.`,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
	}

	basisCmd = &cobra.Command{
		Use:   "basis",
		Short: "Solve every angular channel and store the eigenbasis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return timed("basis", func() error { return basisStage(cmd.Context()) })
		},
	}

	dipoleCmd = &cobra.Command{
		Use:   "dipole",
		Short: "Restrict the basis and assemble the dipole matrix",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return timed("dipole", func() error { return dipoleStage(cmd.Context()) })
		},
	}

	propagateCmd = &cobra.Command{
		Use:   "propagate",
		Short: "Propagate a wavefunction under the laser pulse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return timed("propagate", func() error {
				_, err := propagateStage(cmd.Context(), cfg)
				return err
			})
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run basis, dipole and propagate in sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := timed("basis", func() error { return basisStage(ctx) }); err != nil {
				return err
			}
			if err := timed("dipole", func() error { return dipoleStage(ctx) }); err != nil {
				return err
			}
			return timed("propagate", func() error {
				_, err := propagateStage(ctx, cfg)
				return err
			})
		},
	}

	versionCmd = &cobra.Command{
		Use:                "version",
		Short:              "Print the version",
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "goTDSE", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML configuration file")
	rootCmd.AddCommand(basisCmd, dipoleCmd, propagateCmd, runCmd, versionCmd)
}

// timed runs a stage and logs its wall time.
func timed(stage string, f func() error) error {
	tstart := time.Now()
	err := f()
	tstop := time.Now()
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("stage", stage).Dur("elapsed", tstop.Sub(tstart)).Msg("Time for " + stage)
	return err
}

func basisStage(ctx context.Context) error {
	p, err := basis.Build(ctx, cfg.Basis, log)
	if err != nil {
		return err
	}
	log.Info().Int("states", len(p)).Str("folder", cfg.Basis.Folder).Msg("basis stored")
	return nil
}

func dipoleStage(ctx context.Context) error {
	p, d, err := dipole.Run(ctx, cfg.Hamiltonian, log)
	if err != nil {
		return err
	}
	log.Info().Int("states", len(p)).Int("nnz", d.NNZ()).Str("folder", cfg.Hamiltonian.Folder).
		Msg("dipole matrix stored")
	return nil
}
