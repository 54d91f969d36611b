package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sourcerer-app/sourcerer/internal/config"
	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/frontend"
	api "github.com/sourcerer-app/sourcerer/internal/frontend/api/v1"
	"github.com/sourcerer-app/sourcerer/internal/llm"
	"github.com/sourcerer-app/sourcerer/internal/logger"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
}

// LogToFile creates a new logger context with a file writer.
func (c *Context) LogToFile(f *os.File) {
	var opts []logger.Option
	if c.Config.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if c.Quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if c.Config.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(c.Config.Core.LogFormat))
	}
	if f != nil {
		opts = append(opts, logger.WithWriter(f))
	}
	c.Context = logger.WithLogger(c.Context, logger.NewLogger(opts...))
}

// NewContext initializes the application setup by loading configuration,
// setting up logger context, and logging any warnings.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()

	bindFlags(cmd, flags...)

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var configLoaderOpts []config.ConfigLoaderOption

	// Use a custom config file if provided via the viper flag "config"
	if cfgPath := viper.GetString("config"); cfgPath != "" {
		configLoaderOpts = append(configLoaderOpts, config.WithConfigFile(cfgPath))
	}

	cfg, err := config.Load(configLoaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, err
	}

	quiet = quiet || cfg.Core.Quiet

	// Create a logger context based on config and quiet mode
	var opts []logger.Option
	if cfg.Core.Debug || os.Getenv("DEBUG") != "" {
		opts = append(opts, logger.WithDebug())
	}
	if quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if cfg.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.Core.LogFormat))
	}
	ctx = logger.WithLogger(ctx, logger.NewLogger(opts...))

	// Log any warnings collected during configuration loading
	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}

	return &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
	}, nil
}

// applyFlagOverrides lets explicit command line flags win over values
// from the config file and environment.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		portStr, _ := cmd.Flags().GetString("port")
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", portStr, err)
		}
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("data-dir") {
		dir, _ := cmd.Flags().GetString("data-dir")
		resolved, err := fileutil.ResolvePath(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		cfg.Paths.DataDir = resolved
	}
	return nil
}

// OpenStore ensures the data directory exists and returns the settings
// store rooted there.
func (c *Context) OpenStore() (*settings.Store, error) {
	dir := c.Config.Paths.DataDir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return settings.New(dir,
		settings.WithLockTimeout(c.Config.Store.LockTimeout),
		settings.WithBackupRetention(c.Config.Store.BackupRetention),
	), nil
}

// NewServer assembles the API frontend over the settings store.
func (c *Context) NewServer() (*frontend.Server, error) {
	store, err := c.OpenStore()
	if err != nil {
		return nil, err
	}
	probe := llm.NewProbe(c.Config.Probe.Timeout)
	return frontend.NewServer(api.New(store, probe), c.Config), nil
}

// NewCommand creates a new command instance with the given cobra command and run function.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		// Setup cpu profiling if enabled.
		if cpuProfileEnabled, _ := cmd.Flags().GetBool("cpu-profile"); cpuProfileEnabled {
			f, err := os.Create("cpu.prof")
			if err != nil {
				fmt.Printf("Failed to create CPU profile file: %v\n", err)
				os.Exit(1)
			}
			pprof.StartCPUProfile(f)
			defer func() {
				pprof.StopCPUProfile()
				if err := f.Close(); err != nil {
					fmt.Printf("Failed to close CPU profile file: %v\n", err)
				}
			}()
		}

		ctx, err := NewContext(cmd, flags)
		if err != nil {
			fmt.Printf("Initialization error: %v\n", err)
			os.Exit(1)
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx.Context, "Command failed", "err", err)
			os.Exit(1)
		}
		return nil
	}

	return cmd
}
