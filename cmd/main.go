package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/likedb/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "likedb",
		Usage:    "Extract liked tracks from Yandex Music and load them into a document store",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   runner.before,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrPartialBatchFailure):
			logger.Error("load finished with failures", "err", err)
			os.Exit(2)
		case errors.Is(err, shared.ErrMissingCredentials):
			logger.Fatalf("%v (set YA_TOKEN in the environment or .env)", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
