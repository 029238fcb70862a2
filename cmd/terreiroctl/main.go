// Command terreiroctl runs maintenance tasks against the configured storage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	memeventrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/eventrepo"
	memmemberrepo "github.com/Overland-East-Bay/terreiro-api/internal/adapters/memory/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/adapters/storage"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/syncer"
	"github.com/Overland-East-Bay/terreiro-api/internal/app/terreiro"
	platformclock "github.com/Overland-East-Bay/terreiro-api/internal/platform/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/config"
)

const programName = "terreiroctl"

var globalFlags = struct {
	debug      bool
	configFile string
}{}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if globalFlags.debug {
		level = slog.LevelDebug
	}
	// Logs go to stderr so command output can be piped.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("component", programName)
}

// session is a restored application bound to the configured storage.
type session struct {
	app   *terreiro.App
	sync  *syncer.Syncer
	store storage.Storage
}

func openSession(ctx context.Context, logger *slog.Logger) (*session, error) {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	st, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := platformclock.NewSystemClockIn(loc)
	sync := syncer.New(syncer.Config{Store: st.Tables, Clock: clk, Logger: logger, WriteTimeout: cfg.SyncWriteTimeout})
	app := terreiro.New(terreiro.Deps{
		Members: memmemberrepo.NewRepo(),
		Events:  memeventrepo.NewRepo(),
		Clock:   clk,
		Syncer:  sync,
		Logger:  logger,
	})
	s := &session{app: app, sync: sync, store: st}
	if err := app.Restore(ctx, st.Tables); err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

// close writes pending snapshots and releases the storage.
func (s *session) close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.sync.Close(ctx)
	s.store.Close()
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Maintenance commands for the terreiro API storage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", "", "path to config file")

	rootCmd.AddCommand(membersCommand())
	rootCmd.AddCommand(exportCommand())
	rootCmd.AddCommand(tokenCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
