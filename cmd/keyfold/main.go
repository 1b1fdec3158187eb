package main

import (
	"fmt"
	"os"

	cli "github.com/urfave/cli/v2"

	"github.com/keyfold/keyfold/logger"
)

const versionText = "Print the version"

var (
	Version   = "DEV"
	BuildTime = "unknown"
)

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v", "V"},
		Usage:   versionText,
	}

	app := &cli.App{}
	app.Name = "keyfold"
	app.Usage = "Keyfold's command-line client"
	app.UsageText = "keyfold [global options] [command] [command options]"
	app.Version = fmt.Sprintf("%s (built %s)", Version, BuildTime)
	app.Description = `keyfold manages your encrypted vaults from the command line.
	The update commands check the official release server for newer builds and
	download them once you opt in.`
	app.Flags = flags()
	app.Commands = commands(cli.ShowVersion)

	if err := app.Run(os.Args); err != nil {
		log := logger.Fallback()
		log.Err(err).Msg("keyfold exited with error")
		os.Exit(1)
	}
}

func commands(version func(c *cli.Context)) []*cli.Command {
	cmds := []*cli.Command{
		{
			Name: "version",
			Action: func(c *cli.Context) error {
				version(c)
				return nil
			},
			Usage:       versionText,
			Description: versionText,
		},
	}
	cmds = append(cmds, updateCommands()...)
	return cmds
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Specifies a config file in YAML format.",
		},
		&cli.StringFlag{
			Name:  logger.LogLevelFlag,
			Value: "info",
			Usage: "Application logging level {debug, info, warn, error, fatal}",
		},
		&cli.StringFlag{
			Name:  logger.LogFileFlag,
			Usage: "Save application log to this file. Rotates automatically.",
		},
	}
}
