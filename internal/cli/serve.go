package cli

import (
	"fmt"
	"time"

	"github.com/lacquerai/blocksmith/internal/server"
	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Serve command flags
	servePort    int
	serveHost    string
	serveMetrics bool
	serveCORS    bool
	serveWatch   bool
	serveTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the code generation server for the page editor",
	Long: `Start an HTTP server that exposes the block library to the page editor.

The server provides:
- REST API for the block list, toolbox and theme
- Workspace compilation and page rendering
- Tutorial step validation
- WebSocket block previews for the block designer
- Prometheus metrics endpoint`,
	Example: `
  bsm serve                                   # Serve ./blocks on localhost:8080
  bsm serve --blocks ./library --watch        # Reload when library files change
  bsm serve --db-driver sqlite --db-dsn app.db
  bsm serve --port 9000 --host 0.0.0.0        # Custom host and port`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "server port")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "server host")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 15*time.Second, "read and write timeout")

	// Features
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true, "enable Prometheus metrics endpoint")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", true, "enable CORS headers")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the library when files in --blocks change")
}

func serverConfig() *server.Config {
	config := server.DefaultConfig()
	config.Host = serveHost
	config.Port = servePort
	config.EnableMetrics = serveMetrics
	config.EnableCORS = serveCORS
	config.ReadTimeout = serveTimeout
	config.WriteTimeout = serveTimeout

	if serveWatch && storeConfig().Driver == store.DriverFile {
		config.WatchDir = viper.GetString("blocks")
	}
	return config
}

func startServer(cmd *cobra.Command) error {
	if serveWatch && storeConfig().Driver != store.DriverFile {
		return fmt.Errorf("--watch requires the file store")
	}

	library, err := loadLibrary(cmd)
	if err != nil {
		return err
	}
	defer library.Store().Close()

	srv, err := server.New(serverConfig(), library)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	w := cmd.OutOrStdout()
	if !viper.GetBool("quiet") {
		style.Success(w, fmt.Sprintf("Blocksmith server starting at http://%s", srv.GetAddr()))
		fmt.Fprintf(w, "Loaded blocks: %d (%d skipped)\n", library.Count(), library.Skipped())
		fmt.Fprintf(w, "API: http://%s/api/v1/blocks\n", srv.GetAddr())
		if serveMetrics {
			fmt.Fprintf(w, "Metrics: http://%s/metrics\n", srv.GetAddr())
		}
		if serveWatch {
			fmt.Fprintf(w, "Watching: %s\n", style.FormatFilePath(viper.GetString("blocks")))
		}
	}

	if err := srv.StartWithGracefulShutdown(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
