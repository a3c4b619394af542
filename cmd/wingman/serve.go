package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrygo/wingman/internal/profile"
	"github.com/hrygo/wingman/server"
	"github.com/hrygo/wingman/store"
	"github.com/hrygo/wingman/store/db"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the results API that the analysis service posts to and sessions poll",
	RunE: func(cmd *cobra.Command, _ []string) error {
		setupLogger()
		p, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		st, err := openStore(ctx, p)
		if err != nil {
			return err
		}
		s, err := server.NewServer(ctx, p, st)
		if err != nil {
			st.Close()
			return err
		}
		if err := s.Start(ctx); err != nil {
			s.Shutdown(ctx)
			return err
		}
		printGreetings(p, s.Addr())

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		s.Shutdown(ctx)
		return nil
	},
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		slog.Error("failed to create db driver", "error", err)
		return nil, err
	}
	st := store.New(driver, p)
	if err := st.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", "error", err)
		st.Close()
		return nil, err
	}
	return st, nil
}

func printGreetings(p *profile.Profile, addr string) {
	if p.IsDev() {
		slog.Info("wingman started", "version", p.Version, "mode", p.Mode, "data", p.Data, "dsn", p.DSN, "driver", p.Driver)
	} else {
		slog.Info("wingman started", "version", p.Version, "mode", p.Mode)
	}
	slog.Info("results API listening", "url", "http://"+addr+"/api/v1")
}
