// logger.go --  This file is part of goTDSE project.
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

// Package logger sets up the structured run log and the plain output log of
// a goTDSE run.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // Enable pretty console output
	// OutputFile, if set, receives a JSON copy of every event.
	OutputFile string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates the run logger. The returned closer releases the output file.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = os.Stdout
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	var closer io.Closer = nopCloser{}
	output := console
	if cfg.OutputFile != "" {
		file, err := os.OpenFile(cfg.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("logger: %w", err)
		}
		closer = file
		output = zerolog.MultiLevelWriter(console, file)
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Logger(), closer, nil
}

// Banner writes the program header.
func Banner(w io.Writer, version string) {
	fmt.Fprintf(w, "\n"+
		"            _____ ____  ____  _____ |\n"+
		"   __ _  __|_   _|  _ \\/ ___|| ____|| goTDSE %s\n"+
		"  / _` |/ _ \\| | | | | \\___ \\|  _|  | Author: Mirzaeva Irina Valerievna\n"+
		" | (_| | (_) | | | |_| |___) | |___ | email: dairdre@gmail.com\n"+
		"  \\__, |\\___/|_| |____/|____/|_____|| Nikolaev Institute of Inorganic Chemistry SB RAS\n"+
		"  |___/                             | Novosibirsk, Russia\n\n", version)
}

// Delimiter writes a separator line.
func Delimiter(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", 70))
}

// MemDebug logs the Go heap statistics and, when available, the host memory.
func MemDebug(log zerolog.Logger) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	ev := log.Debug().
		Uint64("alloc", ms.Alloc).
		Uint64("total_alloc", ms.TotalAlloc).
		Uint64("heap_alloc", ms.HeapAlloc).
		Uint64("heap_sys", ms.HeapSys)
	if vm, err := mem.VirtualMemory(); err == nil {
		ev = ev.Uint64("host_total", vm.Total).
			Uint64("host_available", vm.Available).
			Float64("host_used_percent", vm.UsedPercent)
	}
	ev.Msg("memory")
}
