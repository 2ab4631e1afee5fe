package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/harvest-boost/internal/api"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/engine"
	"github.com/talgya/harvest-boost/internal/persistence"
)

var (
	runSpeed float64
	runNoAPI bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated farm with the boost engine and HTTP API",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Float64Var(&runSpeed, "speed", 1, "simulation speed multiplier (0 starts paused)")
	runCmd.Flags().BoolVar(&runNoAPI, "no-api", false, "do not start the HTTP API")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	// ── World, farmhands and boost engine ─────────────────────────────
	app := NewApp(cfg, db)
	defer app.Close()

	if tickStr, err := db.GetMeta("last_tick"); err == nil {
		if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
			app.Engine.Resume(t)
			slog.Info("resuming journal clock", "tick", t, "time", engine.GameTime(t))
		}
	} else if !errors.Is(err, persistence.ErrNoMeta) {
		slog.Warn("could not read last tick", "error", err)
	}
	app.Engine.SetSpeed(runSpeed)

	// ── HTTP API ──────────────────────────────────────────────────────
	if !runNoAPI {
		if cfg.Server.AdminKey == "" {
			slog.Warn("HARVESTBOOST_ADMIN_KEY not set, admin POST endpoints are disabled")
		}
		srv := (&api.Server{
			Boosts: app.Boosts,
			Eng:    app.Engine,
			Host:   app.Host,
			DB:     db,
			Sim:    app.Sim,
			Level:  logLevel,
			Reload: func() (*config.Config, error) { return loadConfig(cmd) },
		}).Start(cfg.ListenAddr())
		defer api.Shutdown(srv)
		fmt.Fprintf(cmd.OutOrStdout(), "API: http://%s/api/v1/status\n", cfg.ListenAddr())
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "%d farmhands working %d plants across %d worlds. (Ctrl+C to stop)\n",
		len(app.Sim.Farmhands()), app.Sim.PlantCount(), len(app.Host.Worlds()))
	app.Engine.Run(ctx)

	if err := app.Journal.Flush(); err != nil {
		slog.Error("journal flush failed", "error", err)
	}
	if err := db.SaveRunMeta(app.Engine.Tick(), app.Seed); err != nil {
		slog.Error("run metadata save failed", "error", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Simulation stopped. Journal saved.")
	return nil
}
