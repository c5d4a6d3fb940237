package internal

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config lookup paths and the env prefix
	DefaultAppName        = "dupfs"
	DefaultAppCMDShortCut = "dupfs"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultConfigFile     = filepath.Join(DefaultConfigPath, "config.yaml")
	DefaultIgnoreFile     = "." + DefaultAppName + "ignore"

	// Default scan settings
	DefaultPrefixLimit    int64 = 100 * 1024
	DefaultBufferSize           = 10 * 1024
	DefaultThreads              = 1
	DefaultAlgorithm            = "md5"
	DefaultErrorPolicy          = "abort"
	DefaultLogLevel             = "info"
	DefaultVersionBanner        = DefaultAppName + " 1.0.0"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// NewLogger builds the application logger for the given level name.
// Unknown levels fall back to info. When pretty is set, output goes through
// a human readable console writer instead of JSON lines.
func NewLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	}
	return GetLogger().Level(lvl)
}
