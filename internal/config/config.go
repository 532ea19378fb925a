package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig is the whole service configuration.
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Schedule ScheduleConfig `toml:"schedule"`
	Mirror   MirrorConfig   `toml:"mirror"`
}

// ServerConfig HTTP host settings.
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig data directory and file names.
type DataConfig struct {
	DataDir       string `toml:"data_dir"`
	StudentsFile  string `toml:"students_file"`
	OrdersFile    string `toml:"orders_file"`
	MirrorFile    string `toml:"mirror_file"`
	RemindersFile string `toml:"reminders_file"`
}

// ScheduleConfig calendar and cutoff settings.
type ScheduleConfig struct {
	// Deadline is the time of day after which today's orders freeze, "HH:MM".
	Deadline string `toml:"deadline"`
	// ReminderAt is the time of day the reminder scan fires, "HH:MM".
	ReminderAt string `toml:"reminder_at"`
	// UTCOffsetHours shifts "now" into school local time.
	UTCOffsetHours int `toml:"utc_offset_hours"`
	// WorkingDays are the weekdays orders can target: 1=Mon .. 7=Sun.
	WorkingDays []int `toml:"working_days"`
	// ListingDays is how many upcoming working days the date menu offers.
	ListingDays int `toml:"listing_days"`
}

// MirrorConfig tuning knobs for kitchen-sheet layout detection.
type MirrorConfig struct {
	// AnchorScanRows caps how deep the date-anchor scan looks.
	AnchorScanRows int `toml:"anchor_scan_rows"`
	// AnchorFallbackRow is used when no date is found within the scan cap (1-based).
	AnchorFallbackRow int `toml:"anchor_fallback_row"`
	// ListFallbackRow is where the student list is assumed to start when the
	// sentinel label is missing (1-based).
	ListFallbackRow int `toml:"list_fallback_row"`
	// MaxDateColumns caps the triple walk along the anchor row.
	MaxDateColumns int `toml:"max_date_columns"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20530,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:       "data",
			StudentsFile:  "students.xlsx",
			OrdersFile:    "orders.xlsx",
			MirrorFile:    "kitchen.xlsx",
			RemindersFile: "reminders.toml",
		},
		Schedule: ScheduleConfig{
			Deadline:       "08:00",
			ReminderAt:     "18:00",
			UTCOffsetHours: 3,
			WorkingDays:    []int{1, 2, 3, 4, 5},
			ListingDays:    10,
		},
		Mirror: MirrorConfig{
			AnchorScanRows:    10,
			AnchorFallbackRow: 3,
			ListFallbackRow:   5,
			MaxDateColumns:    40,
		},
	}
}

// GetExeDir returns the directory of the running executable.
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig loads config.toml from the executable directory, falling back
// to defaults when the file is absent. Environment variables override the
// file for the most commonly redirected values.
func LoadConfig() (*AppConfig, error) {
	cfg := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("FOODBOT_DATA_DIR"); v != "" {
		cfg.Data.DataDir = v
	}
	if v := os.Getenv("FOODBOT_MIRROR_FILE"); v != "" {
		cfg.Data.MirrorFile = v
	}
	if v := os.Getenv("FOODBOT_DEADLINE"); v != "" {
		cfg.Schedule.Deadline = v
	}
}

// SaveConfig writes config.toml next to the executable.
func SaveConfig(cfg *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// EnsureDataDir creates the data directory (relative paths are resolved
// against the executable directory) and returns its absolute path.
func EnsureDataDir(cfg *AppConfig) (string, error) {
	dataDir := resolveDataDir(cfg)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// DataPath resolves a data file name inside the data directory.
func DataPath(cfg *AppConfig, filename string) string {
	return filepath.Join(resolveDataDir(cfg), filename)
}

func resolveDataDir(cfg *AppConfig) string {
	dataDir := cfg.Data.DataDir
	if filepath.IsAbs(dataDir) {
		return dataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, dataDir)
}

// ParseClock parses an "HH:MM" time-of-day value.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
