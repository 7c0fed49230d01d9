// Package cli contains the state-estimator command line: replaying recorded inputs, following a
// live stream of inputs and checking configuration files.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/stateestimator/config"
)

const (
	// Flags.
	configFlag       = "config"
	debugFlag        = "debug"
	bagFlag          = "bag"
	inputFlag        = "input"
	outFlag          = "out"
	referenceFlag    = "reference"
	maxAgeFlag       = "max-age"
	quietFlag        = "quiet"
	plotFlag         = "plot"
	rateFlag         = "rate"
	watchFlag        = "watch"
	debounceFlag     = "debounce"
	stdoutOutputPath = "-"
)

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Writer:          out,
		ErrWriter:       errOut,
		Name:            "state-estimator",
		Usage:           "estimate an agent's pose in the global frame from odometry and ground truth",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     configFlag,
				Aliases:  []string{"c"},
				Usage:    "load configuration from `FILE`",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "replay recorded inputs through the estimator and write everything it publishes",
				UsageText: "state-estimator --config <config> run (--bag <bag> | --input <jsonl>) [other options]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:  bagFlag,
						Usage: "rosbag `FILE` holding the input topics",
					},
					&cli.PathFlag{
						Name:  inputFlag,
						Usage: "JSON lines `FILE` of input records",
					},
					&cli.StringFlag{
						Name:  outFlag,
						Usage: "JSON lines `FILE` the published messages are written to, - for stdout",
						Value: stdoutOutputPath,
					},
					&cli.StringFlag{
						Name:  referenceFlag,
						Usage: "topic the estimated poses are evaluated against, defaults to the ground truth pose topic",
					},
					&cli.DurationFlag{
						Name:  maxAgeFlag,
						Usage: "ignore reference poses older than this when evaluating, 0 to disable",
					},
					&cli.PathFlag{
						Name:  plotFlag,
						Usage: "save a plot of the estimated and reference tracks to `FILE` (.png, .svg or .pdf)",
					},
					&cli.BoolFlag{
						Name:  quietFlag,
						Usage: "do not print the evaluation summary",
					},
				},
				Action: RunAction,
			},
			{
				Name:      "follow",
				Usage:     "read input records from stdin and publish estimates in real time until stdin closes",
				UsageText: "state-estimator --config <config> follow [--watch]",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  rateFlag,
						Usage: "override the configured tick rate in Hz",
					},
					&cli.BoolFlag{
						Name:  watchFlag,
						Usage: "apply edits to the config file while running",
					},
					&cli.DurationFlag{
						Name:  debounceFlag,
						Usage: "how long the config file must stay unchanged before it is applied",
						Value: config.DefaultDebounce,
					},
				},
				Action: FollowAction,
			},
			{
				Name:   "validate",
				Usage:  "check the config file and print the settings it resolves to",
				Action: ValidateAction,
			},
		},
	}
}
