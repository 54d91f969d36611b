package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/logger"
)

func CmdServer() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "server [flags]",
			Short: "Start the configuration API server",
			Long: `Launch the HTTP server that manages LLM provider settings and credentials.

The API lets clients:
- Read and update generation defaults and feature toggles
- Register, update, and remove provider endpoints
- Verify stored credentials against the upstream provider
- Export and import the whole configuration as a portable bundle

Flags:
  --host string       Host address to bind the server to (default: 127.0.0.1)
  --port string       Port number to listen on (default: 8000)
  --data-dir string   Path to the configuration data directory

Example:
  sourcerer server --host=0.0.0.0 --port=8000 --data-dir=/var/lib/sourcerer
`,
		}, serverFlags, runServer,
	)
}

var serverFlags = []commandLineFlag{hostFlag, portFlag, dataDirFlag}

func runServer(ctx *Context, _ []string) error {
	logger.Info(ctx, "Server initialization", "host", ctx.Config.Server.Host, "port", ctx.Config.Server.Port)

	if dir := ctx.Config.Paths.LogDir; dir != "" {
		f, err := openServerLogFile(dir)
		if err != nil {
			logger.Warn(ctx, "Could not open server log file", "err", err)
		} else {
			defer func() {
				_ = f.Close()
			}()
			ctx.LogToFile(f)
		}
	}

	server, err := ctx.NewServer()
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func openServerLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return fileutil.OpenOrCreateFile(filepath.Join(dir, "server.log"))
}
