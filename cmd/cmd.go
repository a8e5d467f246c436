// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/likedb/internal/formatter"
)

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Dotenv file with YA_TOKEN, DATASET_PATH, MONGO_URI, ...",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

func snapshotFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "snapshot",
		Aliases: []string{"s"},
		Usage:   "Snapshot file path (default: [snapshot] path)",
	}
}

func metricsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "metrics-file",
		Usage: "Write load metrics in Prometheus text format to this file",
	}
}

// setupCommand handles config and database initialization.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config file and run database migrations",
		Action: r.Setup,
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// extractCommand fetches liked tracks into a snapshot
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "extract",
		Aliases: []string{"ingest"},
		Usage:   "Fetch liked tracks and write the snapshot file",
		Flags: []cli.Flag{
			snapshotFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the summary as JSON",
			},
		},
		Action: r.Extract,
	}
}

// loadCommand writes a snapshot into the store
func loadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Load the snapshot file into the document store",
		Flags: []cli.Flag{
			snapshotFlag(),
			metricsFlag(),
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Load collections concurrently",
			},
		},
		Action: r.Load,
	}
}

// runCommand runs extract then load
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Extract liked tracks and load them into the store",
		Flags: []cli.Flag{
			snapshotFlag(),
			metricsFlag(),
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "Load collections concurrently",
			},
		},
		Action: r.Run,
	}
}

// reportCommand renders a snapshot
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Render the snapshot summary",
		Flags: []cli.Flag{
			snapshotFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
				Value:   formatter.FormatText,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to file instead of stdout (csv writes {output}_genres.csv and {output}_tracks.csv)",
			},
		},
		Action: r.Report,
	}
}

// runsCommand lists run history
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List extract and load run history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Filter by kind (extract or load)",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (running, succeeded, failed)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Runs,
	}
}
