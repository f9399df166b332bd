package plume

import (
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid world configuration")

// Config holds the world tuning. Zero is not a usable configuration;
// start from DefaultConfig and override.
type Config struct {
	// Gravity acceleration (m/s², or N/kg)
	Gravity  mgl64.Vec2 `yaml:"gravity"`
	Substeps int        `yaml:"substeps"`
	// SolverIterations is the number of Gauss-Seidel passes per
	// substep; one is enough when substepping
	SolverIterations int `yaml:"solver_iterations"`
	Workers          int `yaml:"workers"`

	ContactCompliance float64 `yaml:"contact_compliance"`
	// MaxCorrection bounds the positional correction of one solve, so
	// deep overlaps resolve over several substeps
	MaxCorrection float64 `yaml:"max_correction"`
	// WarmStarting seeds contact multipliers from the previous substep
	WarmStarting bool `yaml:"warm_starting"`

	SleepLinearVelocity  float64 `yaml:"sleep_linear_velocity"`
	SleepAngularVelocity float64 `yaml:"sleep_angular_velocity"`
	SleepTime            float64 `yaml:"sleep_time"`

	// Velocity safety caps; exceeding bodies are clamped with a warning
	MaxLinearVelocity  float64 `yaml:"max_linear_velocity"`
	MaxAngularVelocity float64 `yaml:"max_angular_velocity"`

	// LayerMatrix[i] is the bitmask of layers that layer i collides
	// with; both directions must allow a pair
	LayerMatrix [32]uint32 `yaml:"layer_matrix"`

	// DefaultMaterial fills the response fields of bodies added with a
	// blank material
	DefaultMaterial actor.Material `yaml:"default_material"`
}

func DefaultConfig() Config {
	cfg := Config{
		Gravity:              mgl64.Vec2{0, -9.8},
		Substeps:             8,
		SolverIterations:     1,
		Workers:              1,
		ContactCompliance:    STIFF_COMPLIANCE,
		MaxCorrection:        0.5,
		SleepLinearVelocity:  0.1,
		SleepAngularVelocity: 0.05,
		SleepTime:            0.5,
		MaxLinearVelocity:    1000,
		MaxAngularVelocity:   100,
		DefaultMaterial: actor.Material{
			StaticFriction:  0.6,
			DynamicFriction: 0.4,
		},
	}
	for i := range cfg.LayerMatrix {
		cfg.LayerMatrix[i] = ^uint32(0)
	}
	return cfg
}

func (c Config) Validate() error {
	if !actor.IsValidVec(c.Gravity) {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidConfig)
	}
	if c.Substeps <= 0 {
		return fmt.Errorf("%w: substeps must be positive, got %d", ErrInvalidConfig, c.Substeps)
	}
	if c.SolverIterations <= 0 {
		return fmt.Errorf("%w: solver iterations must be positive, got %d", ErrInvalidConfig, c.SolverIterations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.ContactCompliance < 0 {
		return fmt.Errorf("%w: contact compliance cannot be negative", ErrInvalidConfig)
	}
	if c.MaxCorrection <= 0 {
		return fmt.Errorf("%w: max correction must be positive", ErrInvalidConfig)
	}
	if c.SleepLinearVelocity < 0 || c.SleepAngularVelocity < 0 || c.SleepTime < 0 {
		return fmt.Errorf("%w: sleep thresholds cannot be negative", ErrInvalidConfig)
	}
	if c.MaxLinearVelocity <= 0 || c.MaxAngularVelocity <= 0 {
		return fmt.Errorf("%w: velocity caps must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML configuration file over the defaults, so a
// file only needs to name the fields it changes.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
