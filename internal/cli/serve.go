package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/zach-portfolio/internal/logging"
	"github.com/Zachkp/zach-portfolio/internal/server"
	"github.com/Zachkp/zach-portfolio/internal/session"
	"github.com/Zachkp/zach-portfolio/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portfolio over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := loadEnvironment()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		logger := logging.Component("serve")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if removed, err := st.CleanupVisitors(ctx); err != nil {
			logger.Warn().Err(err).Msg("visitor cleanup failed")
		} else if removed > 0 {
			logger.Info().Int64("removed", removed).Msg("removed visitor records older than 12 months")
		}

		opts := sessionOptions(cfg, c)
		opts.Recorder = st
		sessions := session.NewManager(ctx, session.ManagerConfig{
			TTL:           cfg.Session.TTL,
			SweepInterval: cfg.Session.SweepInterval,
		}, opts)

		srv, err := server.New(server.Options{
			Port:          cfg.Server.Port,
			Mode:          cfg.Server.Mode,
			AdminUsername: cfg.Admin.Username,
			AdminPassword: cfg.Admin.Password,
			Content:       c,
			Region:        cfg.Visibility.Region,
			Threshold:     cfg.Visibility.Threshold,
			StaticDir:     cfg.Server.StaticDir,
		}, sessions, st)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error { return sessions.Run(gctx) })
		err = g.Wait()

		// Let background writes land before the store closes.
		sessions.Wait()
		srv.Wait()
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
