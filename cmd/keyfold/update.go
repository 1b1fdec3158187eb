package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	cli "github.com/urfave/cli/v2"

	"github.com/keyfold/keyfold/config"
	"github.com/keyfold/keyfold/fetcher"
	"github.com/keyfold/keyfold/logger"
	"github.com/keyfold/keyfold/manifest"
	"github.com/keyfold/keyfold/platform"
	"github.com/keyfold/keyfold/trust"
	"github.com/keyfold/keyfold/updatecache"
	"github.com/keyfold/keyfold/updater"
	"github.com/keyfold/keyfold/usermsg"
)

const (
	// ManifestURL is the fixed endpoint publishing the signed release manifest.
	ManifestURL = "https://static.keyfold.io/desktop/latest-version.json"
	// StagingManifestURL serves pre-release manifests for internal testing.
	StagingManifestURL = "https://staging-static.keyfold.io/desktop/latest-version.json"

	updateURLFlag = "update-url"
	cachePathFlag = "cache-path"
	stagingFlag   = "staging"
)

// statusUpdateAvailable implements ExitCoder so scripts can detect "an update
// exists" by exit code 11.
type statusUpdateAvailable struct {
	version string
}

func (s *statusUpdateAvailable) Error() string {
	return fmt.Sprintf("a newer keyfold release (%s) is available", s.version)
}

func (s *statusUpdateAvailable) ExitCode() int {
	return 11
}

// statusErr implements ExitCoder with status code 10. Its message is the
// user-facing guidance resolved by the usermsg dispatcher.
type statusErr struct {
	msg string
}

func (e *statusErr) Error() string {
	return e.msg
}

func (e *statusErr) ExitCode() int {
	return 10
}

func updateCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "check-update",
			Action:    checkUpdate,
			Usage:     "Check whether a newer keyfold release exists",
			ArgsUsage: " ",
			Description: `Fetches the signed release manifest from the official download server,
verifies it, and reports whether a release newer than this build exists.

To determine in a script whether an update exists, check for exit code 11.`,
			Flags: updateFlags(),
		},
		{
			Name:      "download-update",
			Action:    downloadUpdate,
			Usage:     "Download the most recently discovered update",
			ArgsUsage: "DESTINATION",
			Description: `Downloads the release discovered by a previous check-update run and writes
it to DESTINATION. Installing the downloaded artifact is up to you.`,
			Flags: updateFlags(),
		},
	}
}

func updateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:   updateURLFlag,
			Usage:  "Override the release manifest endpoint.",
			Hidden: true,
		},
		&cli.BoolFlag{
			Name:   stagingFlag,
			Usage:  "Check the staging release channel.",
			Hidden: true,
		},
		&cli.StringFlag{
			Name:  cachePathFlag,
			Usage: "Path of the update cache database.",
		},
	}
}

func checkUpdate(c *cli.Context) error {
	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return err
	}
	log := createLogger(c, cfg)
	checker, closeChecker, err := buildChecker(c, cfg, log)
	if err != nil {
		return err
	}
	defer closeChecker()

	result, err := checker.CheckForUpdate(c.Context, Version)
	if err != nil {
		log.Debug().Err(err).Msg("update check failed")
		return &statusErr{msg: usermsg.NewDispatcher().Message(err)}
	}
	if result == nil {
		log.Info().Msgf("keyfold is up to date (%s)", Version)
		return nil
	}

	fmt.Printf("A newer keyfold release is available: %s\n", result.Version)
	fmt.Printf("Download: %s\n", result.DownloadURL)
	if result.ReleaseNotes != "" {
		fmt.Printf("\n%s\n", result.ReleaseNotes)
	} else {
		fmt.Printf("Release notes: %s\n", result.ReleaseNotesURL)
	}
	return &statusUpdateAvailable{version: result.Version}
}

func downloadUpdate(c *cli.Context) error {
	destination := c.Args().First()
	if destination == "" {
		return cli.ShowCommandHelp(c, "download-update")
	}

	cfg, err := config.Read(c.String("config"))
	if err != nil {
		return err
	}
	log := createLogger(c, cfg)
	checker, closeChecker, err := buildChecker(c, cfg, log)
	if err != nil {
		return err
	}
	defer closeChecker()

	if err := checker.DownloadUpdate(c.Context, destination); err != nil {
		log.Debug().Err(err).Msg("update download failed")
		return &statusErr{msg: usermsg.NewDispatcher().Message(err)}
	}
	log.Info().Msgf("update written to %s", destination)
	return nil
}

// createLogger builds the logger with flags taking precedence over the
// config file.
func createLogger(c *cli.Context, cfg *config.Configuration) *zerolog.Logger {
	level := c.String(logger.LogLevelFlag)
	if !c.IsSet(logger.LogLevelFlag) && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	file := c.String(logger.LogFileFlag)
	if file == "" {
		file = cfg.LogFile
	}
	return logger.Create(&logger.Config{MinLevel: level, File: file})
}

// buildChecker wires transport, verification and the cache. Failure to decode
// the embedded trust anchor is a build defect and aborts outright.
func buildChecker(c *cli.Context, cfg *config.Configuration, log *zerolog.Logger) (*updater.Checker, func() error, error) {
	key, err := trust.PublicKey()
	if err != nil {
		return nil, nil, errors.Wrap(err, "this build is defective")
	}

	client := fetcher.NewClient(manifestURL(c), userAgent(), platform.Detect(), nil, log)

	cachePath := c.String(cachePathFlag)
	if cachePath == "" {
		cachePath = cfg.CachePath
	}
	if cachePath == "" {
		cachePath = config.DefaultCachePath()
	}
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "failed to create update cache directory")
	}
	store, err := updatecache.Open(cachePath)
	if err != nil {
		return nil, nil, err
	}

	return updater.NewChecker(client, manifest.NewVerifier(key), store, log), store.Close, nil
}

func manifestURL(c *cli.Context) string {
	if url := c.String(updateURLFlag); url != "" {
		return url
	}
	if c.Bool(stagingFlag) {
		return StagingManifestURL
	}
	return ManifestURL
}

func userAgent() string {
	return fmt.Sprintf("keyfold/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}
