package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/harvest-boost/internal/engine"
	"github.com/talgya/harvest-boost/internal/persistence"
	"github.com/talgya/harvest-boost/internal/sim"
)

var (
	inspectTicks  int
	inspectJSON   bool
	inspectEvents int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fast-forward a simulated farm and report who is boosted",
	Long: "Builds the farm from the configuration, runs it for --ticks game ticks " +
		"without sleeping against an in-memory journal, and prints each farmhand's boost status.",
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectTicks, "ticks", 2400, "game ticks to simulate (20 per second)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the report as JSON")
	inspectCmd.Flags().IntVar(&inspectEvents, "events", 10, "recent journal entries to include")
}

// Report is the result of an inspect run.
type Report struct {
	Tick        uint64              `json:"tick"`
	GameTime    string              `json:"game_time"`
	Seed        int64               `json:"seed"`
	Invocations uint64              `json:"scheduler_invocations"`
	Farmhands   []FarmhandReport    `json:"farmhands"`
	Stats       sim.Stats           `json:"stats"`
	Effects     sim.EffectCounts    `json:"effects"`
	Journal     persistence.Counts  `json:"journal"`
	Events      []persistence.Event `json:"events"`
}

// FarmhandReport is one farmhand's line in a Report.
type FarmhandReport struct {
	Name       string  `json:"name"`
	Role       string  `json:"role"`
	World      string  `json:"world"`
	Online     bool    `json:"online"`
	XP         int     `json:"xp"`
	Multiplier float64 `json:"multiplier"`
	Status     string  `json:"status"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("log-level") {
		logLevel.Set(slog.LevelWarn)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if inspectTicks < 0 {
		return fmt.Errorf("--ticks must not be negative")
	}

	db, err := persistence.OpenMemory()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	app := NewApp(cfg, db)
	defer app.Close()
	app.Engine.RunTicks(inspectTicks)
	if err := app.Journal.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}

	report, err := buildReport(cmd.Context(), app, db, inspectEvents)
	if err != nil {
		return err
	}
	if inspectJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func buildReport(ctx context.Context, app *App, db *persistence.DB, events int) (Report, error) {
	r := Report{
		Tick:        app.Engine.Tick(),
		GameTime:    engine.GameTime(app.Engine.Tick()),
		Seed:        app.Seed,
		Invocations: app.Scheduler.Invocations(),
		Stats:       app.Sim.Stats(),
		Effects:     app.Surface.Counts(),
	}
	for _, f := range app.Sim.Farmhands() {
		line := FarmhandReport{
			Name:       f.Name,
			Role:       f.Role.String(),
			World:      f.Location().World,
			Online:     f.Online,
			XP:         app.Surface.XP(f.ID),
			Multiplier: 1.0,
			Status:     "offline",
		}
		if a, ok := app.Host.Lookup(f.ID); ok {
			st := app.Boosts.Inspect(ctx, a)
			line.Multiplier = st.Multiplier
			line.Status = st.String()
		}
		r.Farmhands = append(r.Farmhands, line)
	}

	var err error
	if r.Journal, err = db.Counts(); err != nil {
		return r, fmt.Errorf("journal counts: %w", err)
	}
	if events > 0 {
		if r.Events, err = db.RecentEvents(events); err != nil {
			return r, fmt.Errorf("recent events: %w", err)
		}
	}
	return r, nil
}

func printReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "%s (tick %s, seed %d), %s scheduler runs\n\n",
		r.GameTime, humanize.Comma(int64(r.Tick)), r.Seed, humanize.Comma(int64(r.Invocations)))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FARMHAND\tROLE\tXP\tBOOST\tSTATUS")
	for _, f := range r.Farmhands {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2fx\t%s\n", f.Name, f.Role, f.XP, f.Multiplier, f.Status)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s actions (%s farming), %s block edits, %s disconnects\n",
		humanize.Comma(int64(r.Stats.Actions)), humanize.Comma(int64(r.Stats.Counted)),
		humanize.Comma(int64(r.Stats.BlockEdits)), humanize.Comma(int64(r.Stats.Disconnects)))
	fmt.Fprintf(w, "%s growth ticks, %s boosted, %s grew taller\n",
		humanize.Comma(int64(r.Stats.GrowthTicks)), humanize.Comma(int64(r.Stats.Boosted)),
		humanize.Comma(int64(r.Stats.ExtraHeight)))
	fmt.Fprintf(w, "%s sounds, %s action bars, %s particles\n",
		humanize.Comma(int64(r.Effects.Sounds)), humanize.Comma(int64(r.Effects.ActionBars)),
		humanize.Comma(int64(r.Effects.Particles)))
	fmt.Fprintf(w, "journal: %s feedback, %s growth\n",
		humanize.Comma(int64(r.Journal.Feedback)), humanize.Comma(int64(r.Journal.Growth)))

	if len(r.Events) > 0 {
		fmt.Fprintln(w, "\nrecent:")
		for _, e := range r.Events {
			fmt.Fprintf(w, "  [%s] %s\n", engine.GameTime(e.Tick), e.Description)
		}
	}
}
