package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	internal "github.com/ZanzyTHEbar/dupfs/dupfs"
	"github.com/ZanzyTHEbar/dupfs/dupfs/config"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/hasher"
	"github.com/ZanzyTHEbar/dupfs/dupfs/ports"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"path":         "scan.path",
	"threads":      "scan.threads",
	"ignore":       "scan.ignore",
	"full":         "scan.full",
	"prefix-limit": "scan.prefixLimit",
	"buffer-size":  "scan.bufferSize",
	"algorithm":    "scan.algorithm",
	"error-policy": "scan.errorPolicy",
	"ignore-file":  "scan.ignoreFile",
	"log-level":    "log.level",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	reporter := ports.NewConsoleReporter(stdout, stderr, true)

	fs := pflag.NewFlagSet(internal.DefaultAppName, pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringP("path", "p", ".", "directory to search for duplicate files")
	fs.IntP("threads", "t", internal.DefaultThreads, "maximum number of scan units running at once")
	fs.StringP("ignore", "i", "", `extensions to ignore, e.g. ".exe;.class"`)
	fs.BoolP("full", "f", false, "confirm candidates by hashing whole files")
	fs.Int64("prefix-limit", internal.DefaultPrefixLimit, "bytes hashed per file in the prefix pass")
	fs.Int("buffer-size", internal.DefaultBufferSize, "read chunk size in bytes")
	fs.String("algorithm", internal.DefaultAlgorithm, fmt.Sprintf("hash algorithm %v", hasher.Algorithms()))
	fs.String("error-policy", internal.DefaultErrorPolicy, "what to do with unreadable files: abort or skip")
	fs.String("ignore-file", internal.DefaultIgnoreFile, "gitignore-style file at the scan root")
	fs.String("log-level", internal.DefaultLogLevel, "log level (trace, debug, info, warn, error)")
	configPath := fs.StringP("config", "c", "", "config file (default searches ./config.yaml and "+internal.DefaultConfigFile+")")
	version := fs.BoolP("version", "v", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s - duplicate file finder\n", internal.DefaultAppName)
		fmt.Fprintf(stderr, "usage: %s [options]\n", internal.DefaultAppCMDShortCut)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *version {
		fmt.Fprintln(stdout, internal.DefaultVersionBanner)
		return exitOK
	}

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			reporter.Error("binding flag "+name, err)
			return exitFailed
		}
	}

	cfg, err := config.Load(v, *configPath)
	if err != nil {
		reporter.Error("loading configuration", err)
		return exitUsage
	}

	logger := internal.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	logger.Debug().Interface("config", cfg).Msg("Configuration loaded")

	report, err := filesystem.FindDuplicates(ctx, cfg.ScanOptions(), logger)
	if err != nil {
		reporter.Error("scan failed", err)
		if common.IsConfigError(err) {
			return exitUsage
		}
		return exitFailed
	}

	if err := reporter.Report(report); err != nil {
		reporter.Error("writing report", err)
		return exitFailed
	}
	for _, skipped := range report.Skipped {
		reporter.Warning(fmt.Sprintf("skipped %s (%s): %s", skipped.Path, skipped.Op, skipped.Reason))
	}
	return exitOK
}
