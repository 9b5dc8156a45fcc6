// Package reportcmd implements "vigil report": replay the persisted
// evidence of a certification run from the audit store.
package reportcmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigil/cmd/vigil/ui"
	"vigil/config"
	"vigil/internal/soak"
	"vigil/internal/store"

	"github.com/spf13/cobra"
)

// Cmd returns the "vigil report" command. configFlag points at the root
// persistent flag value.
func Cmd(configFlag *string) *cobra.Command {
	var runID int64

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the recorded evidence of a certification run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			if runID == 0 {
				runID, err = st.LatestRun(ctx)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no recorded runs in %s", cfg.Store.Path)
				}
				if err != nil {
					return err
				}
			}

			fmt.Println(ui.Bold(fmt.Sprintf("run %d", runID)))
			return render(ctx, st, runID)
		},
	}

	cmd.Flags().Int64Var(&runID, "run", 0, "Run id to report (default: latest)")
	return cmd
}

func render(ctx context.Context, st *store.Store, runID int64) error {
	history := st.History(runID)

	if base, err := st.Baseline(ctx, runID); err == nil {
		fmt.Println(ui.Accent("baseline"))
		fmt.Print(ui.KeyValues("  ",
			ui.KV("captured", base.CapturedAt.Format(time.RFC3339)),
			ui.KV("services", fmt.Sprintf("%d", len(base.Services))),
			ui.KV("config hash", base.ConfigHash),
		))
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	snapshots, err := history.Snapshots(ctx)
	if err != nil {
		return err
	}
	if len(snapshots) > 0 {
		fmt.Println(ui.Accent("soak"))
		fmt.Print(ui.KeyValues("  ",
			ui.KV("snapshots", fmt.Sprintf("%d", len(snapshots))),
			ui.KV("availability", fmt.Sprintf("%.2f%%", soak.Availability(snapshots))),
			ui.KV("anomalies", fmt.Sprintf("%d", soak.CountAnomalies(snapshots))),
		))
	}

	checkpoints, err := history.Checkpoints(ctx)
	if err != nil {
		return err
	}
	if len(checkpoints) > 0 {
		rows := make([][]string, 0, len(checkpoints))
		for _, cp := range checkpoints {
			rows = append(rows, []string{
				fmt.Sprintf("%d", cp.Seq),
				cp.Elapsed.String(),
				fmt.Sprintf("%.2f%%", cp.AvailabilityPct),
				fmt.Sprintf("%d", cp.Anomalies),
			})
		}
		fmt.Println(ui.Table([]string{"checkpoint", "elapsed", "availability", "anomalies"}, rows))
	}

	markers, err := history.Markers(ctx)
	if err != nil {
		return err
	}
	for _, m := range markers {
		fmt.Println(ui.InfoMsg("%s at %s: %s", m.Kind, m.Elapsed, m.Note))
	}

	cycles, err := st.GateCycles(ctx, runID)
	if err != nil {
		return err
	}
	if len(cycles) > 0 {
		rows := make([][]string, 0, len(cycles))
		for _, c := range cycles {
			rows = append(rows, []string{
				fmt.Sprintf("%d", c.Cycle),
				c.Phase.String(),
				fmt.Sprintf("%d", c.Zombies),
				c.Reason,
			})
		}
		fmt.Println(ui.Table([]string{"cycle", "outcome", "zombies", "reason"}, rows))
	}

	locks, err := st.LockResults(ctx, runID)
	if err != nil {
		return err
	}
	for _, l := range locks {
		fmt.Println(ui.Accent("determinism lock"))
		fmt.Print(ui.KeyValues("  ",
			ui.KV("run 1", fmt.Sprintf("%d passed / %d failed", l.Run1Passed, l.Run1Failed)),
			ui.KV("run 2", fmt.Sprintf("%d passed / %d failed", l.Run2Passed, l.Run2Failed)),
			ui.KV("deterministic", ui.Bool(l.Deterministic)),
		))
	}

	v, err := st.Verdict(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println(ui.WarnMsg("no verdict recorded"))
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(ui.Bold("verdict: ") + ui.PassFail(v.Pass))
	fmt.Print(ui.KeyValues("  ",
		ui.KV("config match", ui.Bool(v.ConfigMatch)),
		ui.KV("pid stable", ui.Bool(v.PIDStable)),
		ui.KV("final healthy", ui.Bool(v.FinalHealthy)),
		ui.KV("availability", fmt.Sprintf("%.2f%%", v.AvailabilityPct)),
		ui.KV("anomalies", fmt.Sprintf("%d", v.Anomalies)),
		ui.KV("deterministic", ui.Bool(v.Deterministic)),
		ui.KV("spot-check match", ui.Bool(v.SpotCheckMatched)),
	))
	return nil
}
