// Package cli wires the queuectl command tree: one cobra command per
// verb in the CLI surface, a shared viper-backed configuration layer,
// and ipfs/go-log structured logging.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cvakhilesh7/queuectl/pkg/jobqueue"
	"github.com/cvakhilesh7/queuectl/pkg/jobqueue/sqlstore"
)

var log = logging.Logger("cmd")

// bootLogger emits the startup line before initLogging has configured
// go-log's level (cobra.OnInitialize runs after flag parsing, so go-log's
// own level isn't set yet when the command tree starts executing).
func bootLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

const rootShortDescription = `queuectl runs a durable, single-node background job queue`

var (
	cfgFile  string
	logLevel string
	dataDir  string

	rootCmd = &cobra.Command{
		Use:   "queuectl",
		Short: rootShortDescription,
		Long: `queuectl - a durable, single-node background job queue controlled entirely through this CLI.
Jobs are shell commands submitted to a local durable store and executed by worker processes with
retry/backoff and dead-letter handling.`,
		SilenceUsage: true,
	}
)

// ExecuteContext runs the root command, exiting the process on error
// (spec.md §7: validation errors at the CLI boundary are reported and
// the process exits nonzero).
func ExecuteContext(ctx context.Context) {
	boot := bootLogger()
	boot.Info("queuectl starting", zap.Strings("args", os.Args[1:]))
	defer func() { _ = boot.Sync() }()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func init() {
	cobra.OnInitialize(initLogging, initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "logging level")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", filepath.Join(lo.Must(os.UserHomeDir()), ".queuectl"), "directory holding the job store")
	cobra.CheckErr(viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir")))
	cobra.CheckErr(viper.BindEnv("data_dir", "QUEUECTL_DATA_DIR"))

	rootCmd.PersistentFlags().String("postgres-dsn", "", "PostgreSQL DSN; when set, queuectl uses Postgres instead of the local SQLite store")
	cobra.CheckErr(viper.BindPFlag("postgres_dsn", rootCmd.PersistentFlags().Lookup("postgres-dsn")))
	cobra.CheckErr(viper.BindEnv("postgres_dsn", "QUEUECTL_POSTGRES_DSN"))

	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workerStartCmd)
	rootCmd.AddCommand(workerStopCmd)
	rootCmd.AddCommand(dlqListCmd)
	rootCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(testCmd)
}

func initConfig() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("QUEUECTL")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		cobra.CheckErr(viper.ReadInConfig())
		return
	}
	viper.SetConfigName("queuectl-config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // optional; absence is not an error
}

func initLogging() {
	if logLevel != "" {
		ll, err := logging.LevelFromString(logLevel)
		cobra.CheckErr(err)
		logging.SetAllLoggers(ll)
		return
	}
	logging.SetAllLoggers(logging.LevelInfo)
}

// openDispatcher opens the configured store (SQLite by default, or
// Postgres when --postgres-dsn/QUEUECTL_POSTGRES_DSN is set) and wraps it
// in a Dispatcher. Callers must Close() the returned Dispatcher.
func openDispatcher(ctx context.Context) (*jobqueue.Dispatcher, error) {
	if dsn := viper.GetString("postgres_dsn"); dsn != "" {
		store, err := sqlstore.NewPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return jobqueue.New(store, jobqueue.WithLogger(log)), nil
	}

	dir := viper.GetString("data_dir")
	if dir == "" {
		dir = filepath.Join(lo.Must(os.UserHomeDir()), ".queuectl")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := sqlstore.NewSQLite(ctx, filepath.Join(dir, "queuectl.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return jobqueue.New(store, jobqueue.WithLogger(log)), nil
}
