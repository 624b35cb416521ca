package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/ascgate/internal/api"
	"github.com/dmitrijs2005/ascgate/internal/auth"
	"github.com/dmitrijs2005/ascgate/internal/config"
	"github.com/dmitrijs2005/ascgate/internal/filex"
	"github.com/dmitrijs2005/ascgate/internal/logging"
	"github.com/dmitrijs2005/ascgate/internal/metrics"
	"github.com/dmitrijs2005/ascgate/internal/netx"
	"github.com/dmitrijs2005/ascgate/internal/repositories/sessions"
	"github.com/dmitrijs2005/ascgate/internal/source"
	"github.com/dmitrijs2005/ascgate/internal/upload"
	"github.com/spf13/cobra"
)

// App holds the configuration and the lazily built services the commands
// share.
type App struct {
	config *config.Config
	out    io.Writer
	errOut io.Writer

	logger  logging.Logger
	logFile *os.File

	tokens   auth.TokenSource
	client   *api.Client
	pipeline *upload.Pipeline

	db      *sql.DB
	journal sessions.Repository

	// newS3 builds the client for s3:// sources; replaced in tests.
	newS3 func(ctx context.Context, opts source.S3Options) (source.S3API, error)
}

func NewApp(cfg *config.Config, out, errOut io.Writer) *App {
	return &App{
		config: cfg,
		out:    out,
		errOut: errOut,
		logger: logging.Nop(),
		newS3: func(ctx context.Context, opts source.S3Options) (source.S3API, error) {
			return source.NewS3Client(ctx, opts)
		},
	}
}

// RootCommand builds the command tree. Flags write straight into the
// App's config, on top of the file and environment values already loaded.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ascgate",
		Short:         "Signed App Store Connect API calls and asset uploads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}
	a.config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.tokenCommand(),
		a.resourceCommand("get", "GET a resource or collection"),
		a.resourceCommand("post", "POST a JSON document"),
		a.resourceCommand("patch", "PATCH a JSON document"),
		a.resourceCommand("delete", "DELETE a resource"),
		a.uploadCommand(),
		a.sessionsCommand(),
		a.commitCommand(),
		a.discardCommand(),
	)
	return root
}

// init validates the final configuration and builds the shared services.
func (a *App) init(ctx context.Context) error {
	cfg := a.config
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := logging.Options{Level: cfg.LogLevel, Console: a.errOut}
	if cfg.LogFile != "" {
		if err := filex.EnsureParentDir(cfg.LogFile); err != nil {
			return err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		opts.File = f
	}
	logger, err := logging.Setup(opts)
	if err != nil {
		return err
	}
	a.logger = logger

	var tokens auth.TokenSource = auth.NewIssuer(auth.NewECDSASigner())
	if !cfg.NoTokenCache {
		tokens = auth.NewCachingIssuer(tokens, cfg.TokenMargin.D())
	}
	a.tokens = tokens

	a.client, err = api.New(api.Config{
		APIRoot:    cfg.APIRoot,
		HTTPClient: netx.NewHTTPClient(cfg.HTTPTimeout.D()),
		Tokens:     tokens,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	pcfg := upload.Config{
		API:           a.client,
		HTTPClient:    netx.NewHTTPClient(cfg.UploadTimeout.D()),
		Concurrency:   cfg.UploadConcurrency,
		PartRetries:   cfg.PartRetries,
		PartRetryBase: cfg.PartRetryBase.D(),
		Logger:        a.logger,
	}
	if cfg.JournalPath != "" {
		if err := filex.EnsureParentDir(cfg.JournalPath); err != nil {
			return err
		}
		a.db, err = sessions.Open(ctx, cfg.JournalPath)
		if err != nil {
			return err
		}
		a.journal = sessions.NewSQLiteRepository(a.db)
		pcfg.Journal = a.journal
	}

	a.pipeline, err = upload.NewPipeline(pcfg)
	return err
}

// Close releases the journal and log file and writes the metrics file.
func (a *App) Close() error {
	var errs []error
	if a.config.MetricsFile != "" {
		errs = append(errs, metrics.WriteTextfile(a.config.MetricsFile))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// Run executes the command line and closes the App.
func Run(ctx context.Context, cfg *config.Config, args []string, out, errOut io.Writer) error {
	app := NewApp(cfg, out, errOut)
	root := app.RootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, app.Close())
}
