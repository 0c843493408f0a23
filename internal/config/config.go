// config.go --  This file is part of goTDSE project.
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

// Package config holds the resolved parameters of every stage. Values come
// from built-in defaults, then an optional YAML file, then GOTDSE_* environment
// variables (a .env file in the working directory is honoured).
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MirzaevaIV/goTDSE/internal/binio"
)

var ErrInvalid = errors.New("config: invalid parameters")

type Config struct {
	Basis          BasisParams          `yaml:"basis"`
	Hamiltonian    HamiltonianParams    `yaml:"hamiltonian"`
	Laser          LaserParams          `yaml:"laser"`
	Absorber       AbsorberParams       `yaml:"absorber"`
	DipoleObserver DipoleObserverParams `yaml:"dipole_observer"`
	GroundState    GroundStateParams    `yaml:"ground_state"`
	Propagate      PropagateParams      `yaml:"propagate"`
	Logging        LoggingParams        `yaml:"logging"`
}

// BasisParams describe the grid and the channels of the eigenbasis.
type BasisParams struct {
	Folder      string  `yaml:"folder" validate:"required"`
	Points      int     `yaml:"points" validate:"gte=2"`
	RMax        float64 `yaml:"rmax" validate:"gt=0"`
	NMax        int     `yaml:"nmax" validate:"gte=1"`
	LMax        int     `yaml:"lmax" validate:"gte=0"`
	Charge      float64 `yaml:"charge"`
	ECSFraction float64 `yaml:"ecs_fraction" validate:"gte=0,lte=1"`
	ECSAngle    float64 `yaml:"ecs_alpha"`
	GroundShift float64 `yaml:"ground_shift"`
	RefineNCV   int     `yaml:"refine_ncv" validate:"gte=0"`
	Retries     int     `yaml:"retries" validate:"gte=0"`
}

// Complex reports whether the basis lives on an exterior complex scaled grid.
func (b BasisParams) Complex() bool { return b.ECSFraction > 0 }

// HamiltonianParams select the part of the basis that enters the dipole and
// field-free operators.
type HamiltonianParams struct {
	Folder      string  `yaml:"folder" validate:"required"`
	BasisFolder string  `yaml:"basis_folder" validate:"required"`
	NMax        int     `yaml:"nmax" validate:"gte=1"`
	LMax        int     `yaml:"lmax" validate:"gte=0"`
	MMax        int     `yaml:"mmax" validate:"gte=0"`
	EMax        float64 `yaml:"emax"`
	Workers     int     `yaml:"workers" validate:"gte=0"`
	Stream      bool    `yaml:"stream"`
	QueueSize   int     `yaml:"queue_size" validate:"gte=1"`
}

type LaserParams struct {
	Frequency float64 `yaml:"frequency" validate:"gt=0"`
	CEP       float64 `yaml:"cep"`
	Cycles    float64 `yaml:"cycles" validate:"gt=0"`
	Intensity float64 `yaml:"intensity" validate:"gte=0"`
}

type AbsorberParams struct {
	Enabled bool   `yaml:"enabled"`
	NSize   int    `yaml:"n_size" validate:"gte=0"`
	LSize   int    `yaml:"l_size" validate:"gte=0"`
	Type    string `yaml:"type" validate:"oneof=cos_eighth linear"`
}

type DipoleObserverParams struct {
	Enabled   bool      `yaml:"enabled"`
	NSections []int     `yaml:"n_sections"`
	ESections []float64 `yaml:"e_sections"`
}

type GroundStateParams struct {
	Enabled  bool    `yaml:"enabled"`
	Every    int     `yaml:"every" validate:"gte=1"`
	Energy   float64 `yaml:"energy"`
	MaxOuter int     `yaml:"max_outer" validate:"gte=1"`
	Retries  int     `yaml:"retries" validate:"gte=0"`
}

type PropagateParams struct {
	Folder        string  `yaml:"folder" validate:"required"`
	TStart        float64 `yaml:"t_start"`
	TEnd          float64 `yaml:"t_end"`
	Dt            float64 `yaml:"dt" validate:"gt=0"`
	Wavefunction  string  `yaml:"wavefunction"`
	FieldTracker  bool    `yaml:"field_tracker"`
	NormTolerance float64 `yaml:"norm_tolerance" validate:"gt=0"`
}

type LoggingParams struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Pretty     bool   `yaml:"pretty"`
	OutputFile string `yaml:"output_file"`
	Metrics    string `yaml:"metrics_file"`
}

// Default returns the parameters used when nothing else is given.
func Default() Config {
	return Config{
		Basis: BasisParams{
			Folder:      "./basis",
			Points:      10000,
			RMax:        1000,
			NMax:        100,
			LMax:        10,
			Charge:      1,
			ECSAngle:    math.Pi / 6,
			GroundShift: -10,
			RefineNCV:   600,
			Retries:     6,
		},
		Hamiltonian: HamiltonianParams{
			Folder:      "./hamiltonian",
			BasisFolder: "./basis",
			NMax:        100,
			LMax:        10,
			EMax:        1000,
			QueueSize:   8,
		},
		Laser: LaserParams{
			Frequency: 0.057,
			Cycles:    10,
			Intensity: 0.001,
		},
		Absorber: AbsorberParams{
			NSize: 20,
			LSize: 5,
			Type:  "cos_eighth",
		},
		GroundState: GroundStateParams{
			Every:    100,
			MaxOuter: 20,
			Retries:  6,
			Energy:   -0.5,
		},
		Propagate: PropagateParams{
			Folder:        "./propagate",
			TEnd:          -1,
			Dt:            0.05,
			NormTolerance: 1e-6,
		},
		Logging: LoggingParams{
			Level: "info",
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is not empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Logging.Level = getEnv("GOTDSE_LOG_LEVEL", c.Logging.Level)
	c.Logging.OutputFile = getEnv("GOTDSE_OUTPUT_FILE", c.Logging.OutputFile)
	c.Logging.Metrics = getEnv("GOTDSE_METRICS_FILE", c.Logging.Metrics)
	c.Basis.Folder = getEnv("GOTDSE_BASIS_FOLDER", c.Basis.Folder)
	c.Hamiltonian.Folder = getEnv("GOTDSE_HAMILTONIAN_FOLDER", c.Hamiltonian.Folder)
	c.Hamiltonian.BasisFolder = getEnv("GOTDSE_BASIS_FOLDER", c.Hamiltonian.BasisFolder)
	c.Hamiltonian.Workers = getEnvAsInt("GOTDSE_WORKERS", c.Hamiltonian.Workers)
	c.Propagate.Folder = getEnv("GOTDSE_PROPAGATE_FOLDER", c.Propagate.Folder)
}

var validate = validator.New()

// Validate checks field ranges and the relations between sections.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Basis.NMax <= c.Basis.LMax {
		return fmt.Errorf("%w: basis nmax=%d must exceed lmax=%d", ErrInvalid, c.Basis.NMax, c.Basis.LMax)
	}
	for i := 1; i < len(c.DipoleObserver.NSections); i++ {
		if c.DipoleObserver.NSections[i] <= c.DipoleObserver.NSections[i-1] {
			return fmt.Errorf("%w: dipole n sections must increase", ErrInvalid)
		}
	}
	for i := 1; i < len(c.DipoleObserver.ESections); i++ {
		if c.DipoleObserver.ESections[i] <= c.DipoleObserver.ESections[i-1] {
			return fmt.Errorf("%w: dipole e sections must increase", ErrInvalid)
		}
	}
	return nil
}

// Write echoes v as <stage>.yaml into folder.
func Write(folder, stage string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return binio.WriteAtomic(filepath.Join(folder, stage+".yaml"), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Read loads the <stage>.yaml echo written by Write from folder into v.
func Read(folder, stage string, v any) error {
	path := filepath.Join(folder, stage+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
