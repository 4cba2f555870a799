package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lacquerai/blocksmith/internal/server"
	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/lacquerai/blocksmith/internal/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeConfig resolves the library source from flags, config and env
func storeConfig() store.Config {
	cfg := store.Config{
		Driver:         viper.GetString("database.driver"),
		DSN:            viper.GetString("database.dsn"),
		RequireLibrary: viper.GetString("require_library"),
	}
	if cfg.Driver == "" || cfg.Driver == store.DriverFile {
		cfg.Driver = store.DriverFile
		cfg.DSN = viper.GetString("blocks")
	}
	return cfg
}

func openStore(ctx context.Context) (store.Store, error) {
	cfg := storeConfig()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s block library: %w", cfg.Driver, err)
	}
	return st, nil
}

// loadLibrary opens the configured store and loads it into a Library. The
// caller closes the returned store.
func loadLibrary(cmd *cobra.Command) (*server.Library, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	showProgress := textOutput() && !viper.GetBool("quiet")
	var spin style.Spinner
	if showProgress {
		spin = style.NewSpinner(cmd.ErrOrStderr())
		spin.SetSuffix(" Loading block library")
		spin.Start()
	}

	library := server.NewLibrary(st)
	stats, err := library.Reload(ctx)

	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		st.Close()
		return nil, err
	}

	if showProgress && stats.Skipped > 0 {
		style.Warning(cmd.ErrOrStderr(), fmt.Sprintf("%d block definition(s) skipped, run 'bsm validate' for details", stats.Skipped))
	}

	return library, nil
}

// readInput reads a file argument, or stdin when it is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
