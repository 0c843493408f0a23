// main.go --  This file is part of goTDSE project.
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
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
	"github.com/MirzaevaIV/goTDSE/internal/config"
	"github.com/MirzaevaIV/goTDSE/internal/logger"
	"github.com/MirzaevaIV/goTDSE/internal/metrics"
)

var version = "dev"

var (
	cfgFile   string
	cfg       config.Config
	log       = zerolog.Nop()
	logCloser io.Closer
	out       io.Writer = os.Stdout
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration, opens the run log and echoes the input.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, logCloser, err = logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Pretty:     cfg.Logging.Pretty,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		return err
	}

	log.Info().Str("command", cmd.Name()).Msg("Starting goTDSE...")
	logger.Banner(out, version)
	log.Warn().Msg("This is an experimental program on an early stage of development.")

	if cfgFile != "" {
		lines, err := binio.ReadFileLines(cfgFile)
		if err != nil {
			log.Error().Err(err).Msg("Cannot read input file")
			return err
		}
		fmt.Fprintln(out, "Input file content:")
		logger.Delimiter(out)
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		logger.Delimiter(out)
	}
	return nil
}

// teardown dumps memory statistics and metrics and closes the run log.
func teardown(*cobra.Command, []string) error {
	logger.MemDebug(log)
	var err error
	if cfg.Logging.Metrics != "" {
		if err = metrics.WriteTextfile(cfg.Logging.Metrics); err != nil {
			log.Error().Err(err).Str("file", cfg.Logging.Metrics).Msg("cannot write metrics")
		}
	}
	log.Info().Msg("Exiting goTDSE...")
	if logCloser != nil {
		if cerr := logCloser.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
