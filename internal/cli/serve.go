package geoassist

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/geoassist/internal/dashboard"
	"github.com/mwiater/geoassist/internal/geo"
	"github.com/mwiater/geoassist/internal/logging"
)

// serveCmd runs the web dashboard until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query dashboard and district map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, closeFn, err := newEngine(ctx, cfg, "dashboard")
		if err != nil {
			return err
		}
		defer closeFn()

		boundaries, err := geo.LoadBoundaries(cfg.DistrictsPath, cfg.NameFields())
		if err != nil {
			logging.Warnf("[SERVE] map disabled: %v", err)
			boundaries = nil
		}

		server := dashboard.NewServer(cfg.ServerAddr, engine, boundaries)
		errc := make(chan error, 1)
		go func() { errc <- server.Run() }()
		cmd.Printf("%s Dashboard listening on %s\n", okMark("✓"), cfg.ServerAddr)

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			return server.Shutdown()
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides serverAddr)")
	_ = viper.BindPFlag("serverAddr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

