package constants

import "time"

const (
	AppName            = "pacewise"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/pacewise/pacewise.db"
	DefaultAthleteID   = "default"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "pacewise-"
	BackupFileSuffix = ".db"

	// Environment overrides
	EnvDBConnection = "PACEWISE_DB_CONNECTION"
	EnvConfigFile   = "PACEWISE_CONFIG"

	Day = 24 * time.Hour
)
