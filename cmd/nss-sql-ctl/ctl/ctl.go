// Package ctl is the nss-sql-ctl command line: it resolves identities through
// the NSS module the same way the C library would, and prints them in the
// getent format.
package ctl

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/backend/sqlbackend"
	"github.com/ubuntu/nss-sql/internal/config"
	"github.com/ubuntu/nss-sql/internal/consts"
	"github.com/ubuntu/nss-sql/internal/metrics"
	"github.com/ubuntu/nss-sql/internal/nss"
	"github.com/ubuntu/nss-sql/log"
)

// cmdName is the binary name of the tool.
const cmdName = "nss-sql-ctl"

// envPrefix is the prefix of the environment variables overriding the flags.
const envPrefix = "nss_sql"

// App encapsulate commands and options of the tool, which can be controlled by env variables and flags.
type App struct {
	rootCmd cobra.Command
	viper   *viper.Viper
	config  ctlConfig
}

// ctlConfig holds the settings of the tool, merged from flags and environment.
type ctlConfig struct {
	Verbosity   int
	Config      string
	RootConfig  string `mapstructure:"root-config"`
	BufferSize  int    `mapstructure:"buffer-size"`
	MetricsFile string `mapstructure:"metrics-file"`
}

// NotFoundError is returned when some of the requested keys did not match any entry.
type NotFoundError struct {
	Database string
	Keys     []string
}

// Error implements the error interface.
func (err NotFoundError) Error() string {
	if len(err.Keys) == 0 {
		return fmt.Sprintf("no %s entry found", err.Database)
	}
	return fmt.Sprintf("no %s entry found for %s", err.Database, strings.Join(err.Keys, ", "))
}

// Is makes this error insensitive to the database and keys.
func (NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	return ok
}

// New registers commands and return a new App.
func New() *App {
	a := App{viper: viper.New()}
	a.rootCmd = cobra.Command{
		Use:   fmt.Sprintf("%s COMMAND", cmdName),
		Short: "Query the SQL NSS module",
		Long:  "Resolve users, groups and shadow entries through the SQL NSS module, as getent does through nsswitch.",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.rootCmd.SilenceUsage = true

			a.config = ctlConfig{
				Config:     consts.DefaultConfigPath,
				RootConfig: consts.DefaultRootConfigPath,
				BufferSize: nss.DefaultBufferSize,
			}
			if err := initViperConfig(envPrefix, cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to decode configuration into struct: %w", err)
			}
			if a.config.BufferSize <= 0 || a.config.BufferSize > consts.MaxBufferSize {
				return fmt.Errorf("buffer size must be between 1 and %d bytes, got %d", consts.MaxBufferSize, a.config.BufferSize)
			}

			setVerboseMode(a.config.Verbosity)
			log.Debugf(context.Background(), "Verbosity: %d", a.config.Verbosity)

			return nil
		},
		// We display usage error ourselves
		SilenceErrors: true,
	}

	installVerbosityFlag(&a.rootCmd, a.viper)
	installPathFlags(&a.rootCmd, a.viper)

	// subcommands
	a.installPasswd()
	a.installGroup()
	a.installShadow()
	a.installInitgroups()
	a.installCheckConfig()
	a.installVersion()

	return &a
}

// Run executes the command and associated process. It returns an error on syntax/usage error.
func (a *App) Run() error {
	return a.rootCmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.rootCmd.SilenceUsage
}

// RootCmd returns a copy of the root command for the app.
// Shouldn't be in general necessary apart when running generators.
func (a App) RootCmd() cobra.Command {
	return a.rootCmd
}

// withModule loads the configuration, runs fn over a fresh module and writes
// the metrics file once fn returns.
func (a *App) withModule(ctx context.Context, fn func(m *nss.Module) error) (err error) {
	cfg, err := config.Load(ctx, a.config.Config, a.config.RootConfig)
	if err != nil {
		return err
	}

	b, err := sqlbackend.New(cfg)
	if err != nil {
		return err
	}

	observer := metrics.New()
	m, err := nss.New(b, nss.WithObserver(observer))
	if err != nil {
		return err
	}
	defer m.Close(ctx)

	defer func() {
		if a.config.MetricsFile == "" {
			return
		}
		if mErr := observer.WriteTextfile(a.config.MetricsFile); mErr != nil {
			// The lookup error takes precedence.
			if err == nil {
				err = mErr
				return
			}
			log.Warningf(ctx, "%v", mErr)
		}
	}()

	return fn(m)
}

// lookup runs fn with buffers of growing size, starting at the configured buffer size.
func lookup[R any](a *App, fn func(buf []byte) nss.Result[R]) nss.Result[R] {
	return nss.Retry(a.config.BufferSize, consts.MaxBufferSize, fn)
}

// checkResult turns a failed lookup into an error. NotFound is reported by the caller.
func checkResult[R any](op string, res nss.Result[R]) (err error) {
	defer decorate.OnError(&err, "%s failed", op)

	if res.Status == nss.StatusTryAgain && res.Required > consts.MaxBufferSize {
		return fmt.Errorf("entry needs a %d bytes buffer, larger than the %d bytes limit", res.Required, consts.MaxBufferSize)
	}
	return res.Err()
}
