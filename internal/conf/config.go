// config.go: settings struct and loading for the HydroNet-Go engine
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// MeterKind identifies the metering equipment installed at a measurement point.
type MeterKind string

const (
	MeterMacro          MeterKind = "macro"
	MeterPitometric     MeterKind = "pitometric"
	MeterPressure       MeterKind = "pressure"
	MeterReservoirLevel MeterKind = "reservoir_level"
	MeterHydrometer     MeterKind = "hydrometer"
)

// RelationEligibleKinds lists the meter kinds that participate in
// topology-derived ML relations. Hydrometers are excluded because their
// consumption granularity is incompatible with hourly telemetry.
func RelationEligibleKinds() []MeterKind {
	return []MeterKind{MeterMacro, MeterPitometric, MeterPressure, MeterReservoirLevel}
}

// ScoringWeights holds the fixed weights of the composite confidence formula.
// They are configuration, not magic constants, so tests can assert against
// the values actually used.
type ScoringWeights struct {
	SignalQuality float64 // weight of the fraction of expected samples present
	Certainty     float64 // weight of the classification certainty
	BestMethod    float64 // weight of the best individual method score
}

// PredictorSettings contains settings for the external prediction service.
type PredictorSettings struct {
	Enabled bool          // true to enable external model inference
	URL     string        // base URL of the prediction service
	Timeout time.Duration // per-call timeout; the method is skipped on expiry
}

// DetectionSettings tunes the anomaly detectors applied to each day of readings.
type DetectionSettings struct {
	FlatlineRunHours int     // consecutive identical readings to flag a flatline
	SpikeFactor      float64 // multiple of the historical baseline that flags a spike
	RangeMin         float64 // lower physical plausibility bound
	RangeMax         float64 // upper physical plausibility bound (0 disables)
}

// EngineSettings contains all settings for the detection and correction engine.
type EngineSettings struct {
	Workers               int               // concurrent point workers for a batch run
	HistoryWeeks          int               // same-weekday weeks used for historical baselines
	ValidWeekMinReadings  int               // raw readings required for a week to count as valid
	ExpectedDailyReadings int               // raw samples a full day of telemetry carries
	UpsertRetryBackoff    time.Duration     // wait before the single upsert retry
	Detection             DetectionSettings // anomaly detector tuning
	Scoring               ScoringWeights    // composite confidence weights
	Predictor             PredictorSettings // external model inference settings
}

// MQTTSettings contains settings for MQTT notification publishing.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT
	Broker   string // MQTT broker (tcp://host:port)
	Topic    string // topic prefix for pendency and batch events
	Username string // MQTT username
	Password string // MQTT password
}

// TelemetrySettings contains settings for the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus compatible telemetry endpoint
	Listen  string // IP address and port to listen on
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // Path to the log file
	Rotation RotationType // Type of log rotation
	MaxSize  int64        // Max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// Settings contains all configuration options for the HydroNet-Go application.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name string    // name of this HydroNet-Go node
		Log  LogConfig // logging configuration
	}

	Engine EngineSettings // detection and correction engine settings

	WebServer struct {
		Enabled bool   // true to enable the operator API server
		Port    string // port for the operator API server
	}

	Notification MQTTSettings      // MQTT notification settings
	Telemetry    TelemetrySettings // Prometheus telemetry settings

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}
	}
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("hydronet")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and environment apply.
	}
	return nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	v, ok := err.(viper.ConfigFileNotFoundError)
	if ok {
		*target = v
	}
	return ok
}

// Setting returns the current settings instance, loading them if needed.
func Setting() *Settings {
	settingsMutex.RLock()
	loaded := settingsInstance
	settingsMutex.RUnlock()
	if loaded != nil {
		return loaded
	}
	if settings, err := Load(); err == nil {
		return settings
	}
	return nil
}

// GetDefaultConfigPaths returns the default config file search paths.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "hydronet"),
		"/etc/hydronet",
	}, nil
}

// GetBasePath expands a relative directory against the working directory and
// ensures it exists.
func GetBasePath(path string) string {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}
	_ = os.MkdirAll(path, 0o755)
	return path
}
