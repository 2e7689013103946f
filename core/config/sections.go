package config

import "time"

// MonitorConfig holds the refresh loop settings.
type MonitorConfig struct {
	// Interval is the delay between two full refreshes.
	Interval time.Duration `mapstructure:"interval" default:"500ms"`
	// Cooldown is the delay before the loop restarts after a fault.
	Cooldown time.Duration `mapstructure:"cooldown" default:"20s"`
	// ChangeLogSize is the number of batches kept per scope.
	ChangeLogSize int `mapstructure:"change_log_size" default:"64"`
	// DumpDir is the directory of per-scope inventory dumps read by the dump source.
	DumpDir string `mapstructure:"dump_dir" default:"dumps"`
}

// HistoryConfig holds the change history settings.
type HistoryConfig struct {
	// Enabled persists published changes to the database.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// IncludeMoves also persists moved changes.
	IncludeMoves bool `mapstructure:"include_moves" default:"false"`
}

// ArchiveConfig holds the snapshot archive settings.
type ArchiveConfig struct {
	// Enabled exports changed snapshots to the object store.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Prefix is the object key prefix of exported snapshots.
	Prefix string `mapstructure:"prefix" default:"snapshots"`
	// Interval is the delay between two exports.
	Interval time.Duration `mapstructure:"interval" default:"1m"`
}
