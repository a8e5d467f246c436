package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/likedb/internal/loader"
	"github.com/desertthunder/likedb/internal/repositories"
	"github.com/desertthunder/likedb/internal/services"
	"github.com/desertthunder/likedb/internal/shared"
	"github.com/desertthunder/likedb/internal/tasks"
	"github.com/desertthunder/likedb/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.Source
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config  // Fixed configuration; loaded from --config when nil
	ConfigPath string          // Path recorded for setup; --config when empty
	Source     services.Source // Source override; built from config when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.DefaultPalette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, extractCommand, loadCommand, runCommand, reportCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads dotenv files and configuration ahead of every command.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if err := shared.LoadEnv(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config != nil {
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		config = shared.DefaultConfig()
	case err != nil:
		return ctx, err
	default:
		r.logger.Debug("config loaded", "path", r.configPath)
	}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return ctx, err
	}

	r.config = config
	return ctx, nil
}

// cfg returns the loaded configuration, or defaults when commands run without [Runner.before].
func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

func (r *Runner) snapshotPath(cmd *cli.Command) string {
	if path := cmd.String("snapshot"); path != "" {
		return path
	}
	return r.cfg().Snapshot.Path
}

// openDatabase opens the local database and applies pending migrations.
func (r *Runner) openDatabase(ctx context.Context) (*sql.DB, error) {
	cfg := r.cfg().Database
	r.logger.Debug("opening database", "path", cfg.Path)
	return shared.OpenDatabase(ctx, cfg)
}

// newSource returns the injected source or a Yandex Music client built from config.
func (r *Runner) newSource() (services.Source, error) {
	if r.source != nil {
		return r.source, nil
	}
	return services.NewYandexService(r.cfg().Source)
}

// newEngine wires the pipeline. store may be nil for extract-only use.
func (r *Runner) newEngine(source services.Source, store repositories.Store, db *sql.DB, metrics *loader.Metrics) *tasks.Engine {
	cfg := r.cfg()

	var runs tasks.RunRecorder
	if db != nil {
		runs = repositories.NewRunRepository(db)
	}

	return tasks.NewEngine(source, store, tasks.Options{
		TopN:   cfg.Snapshot.TopN,
		Runs:   runs,
		Logger: r.logger,
		Loader: loader.Options{
			Parallel: cfg.Store.Parallel,
			Logger:   shared.WithLogger(r.logger, "driver", cfg.Store.Driver),
			Metrics:  metrics,
		},
	})
}

// watchProgress prints updates until the returned stop function is called.
func (r *Runner) watchProgress() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.Normalize:
				if update.Step == update.Total {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.LoadCollection:
				r.writePlain("   %s\n", update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
