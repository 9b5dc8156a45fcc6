// Package soakcmd implements "vigil soak": baseline capture, the long
// sampling window, and finalization into a pass/fail verdict.
package soakcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"vigil/cmd/vigil/cmdutil"
	"vigil/cmd/vigil/ui"
	adapterexec "vigil/internal/adapter/exec"
	"vigil/internal/lock"
	"vigil/internal/signal/ntp"
	"vigil/internal/soak"
	"vigil/pkg/telemetry"

	"github.com/spf13/cobra"
)

// Cmd returns the "vigil soak" command. configFlag points at the root
// persistent flag value.
func Cmd(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "soak",
		Short: "Run the long-window soak certification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := cmdutil.Setup(ctx, *configFlag)
			if err != nil {
				return err
			}
			defer env.Close()
			cfg := env.Config

			sup, err := env.Supervisor(ctx)
			if err != nil {
				return err
			}

			telemetryOut := ui.NewTelemetryOutput()
			defer telemetryOut.Close()

			op, err := telemetry.EmitPlan(ctx, telemetryOut.Tracer("vigil/soak"), "soak.run", telemetry.Plan{
				Steps: []telemetry.PlannedStep{
					{ID: "baseline", Title: "recording baseline"},
					{ID: "soak", Title: fmt.Sprintf("soaking for %s", cfg.Soak.Duration)},
					{ID: "finalize", Title: "rendering verdict"},
				},
			})
			if err != nil {
				return err
			}

			runID, err := env.Store.CreateRun(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, ui.InfoMsg("soak run %d over %d services", runID, len(env.Roster.Services)))

			// Advisory clock-skew watcher for the whole window.
			ntpChecker := ntp.NewChecker()
			ntpCtx, stopNTP := context.WithCancel(ctx)
			defer stopNTP()
			go ntpChecker.Run(ntpCtx)
			skew := func() *soak.SkewStatus {
				st := ntpChecker.Status()
				if st.CheckedAt.IsZero() {
					return nil
				}
				return &soak.SkewStatus{
					OffsetMS:  float64(st.Offset) / float64(time.Millisecond),
					Healthy:   st.Healthy,
					CheckedAt: st.CheckedAt,
				}
			}

			var base soak.Baseline
			err = op.RunStep(op.Context(), "baseline", func(stepCtx context.Context) error {
				recorder := &soak.BaselineRecorder{
					Roster:     env.Roster,
					Prober:     env.Prober,
					ConfigPath: cfg.Stack.ConfigFile,
					Clock:      env.Clock,
				}
				base, err = recorder.Capture(stepCtx)
				if err != nil {
					return err
				}
				return env.Store.SaveBaseline(stepCtx, runID, base)
			})
			if err != nil {
				op.End(err)
				return err
			}

			history := env.Store.History(runID)
			controller := &soak.Controller{
				Sampler: &soak.Sampler{
					Roster:     env.Roster,
					Prober:     env.Prober,
					Baseline:   base,
					ConfigPath: cfg.Stack.ConfigFile,
					Thresholds: soak.Thresholds{
						MemoryDriftPct: cfg.Soak.MemoryDriftPct,
						HandleDriftAbs: cfg.Soak.HandleDriftAbs,
					},
					FatalPatterns: cfg.Soak.FatalPatterns,
					LogTailLines:  cfg.Soak.LogTailLines,
					Clock:         env.Clock,
					Skew:          skew,
				},
				History:            history,
				Clock:              env.Clock,
				SnapshotInterval:   cfg.Soak.SnapshotInterval,
				CheckpointInterval: cfg.Soak.CheckpointInterval,
				Duration:           cfg.Soak.Duration,
				OnEvent: func(kind, message string) {
					fmt.Fprintln(os.Stderr, ui.Muted("  "+kind+" "+message))
				},
			}

			runErr := op.RunStep(op.Context(), "soak", controller.Run)
			if runErr != nil && !errors.Is(runErr, soak.ErrRunAborted) {
				// Infrastructure fault or external stop: no verdict to render.
				op.End(runErr)
				return runErr
			}
			if runErr != nil {
				fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", runErr))
			}

			finalizer := &soak.Finalizer{
				Roster:     env.Roster,
				Prober:     env.Prober,
				Baseline:   base,
				History:    history,
				ConfigPath: cfg.Stack.ConfigFile,
				Clock:      env.Clock,
				Spot: &lock.SpotCheck{Lock: &lock.Lock{
					Runner: &adapterexec.WorkloadRunner{
						Command: cfg.Lock.Command,
						Args:    cfg.Lock.Args,
						Dir:     cfg.Lock.Dir,
					},
					Restart:  env.Restart(sup),
					Workload: cfg.Lock.SpotWorkload,
				}},
				ExpectedPassed:     cfg.Lock.ExpectedPassed,
				ExpectedFailed:     cfg.Lock.ExpectedFailed,
				MinAvailabilityPct: cfg.Soak.MinAvailabilityPct,
			}

			var verdict soak.Verdict
			err = op.RunStep(op.Context(), "finalize", func(stepCtx context.Context) error {
				verdict, err = finalizer.Finalize(stepCtx)
				if err != nil {
					return err
				}
				return env.Store.SaveVerdict(stepCtx, runID, verdict)
			})
			op.End(err)
			if err != nil {
				return err
			}

			fmt.Println(ui.Bold("soak verdict: ") + ui.PassFail(verdict.Pass))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("config match", ui.Bool(verdict.ConfigMatch)),
				ui.KV("pid stable", ui.Bool(verdict.PIDStable)),
				ui.KV("final healthy", ui.Bool(verdict.FinalHealthy)),
				ui.KV("availability", fmt.Sprintf("%.2f%%", verdict.AvailabilityPct)),
				ui.KV("anomalies", fmt.Sprintf("%d", verdict.Anomalies)),
				ui.KV("deterministic", ui.Bool(verdict.Deterministic)),
				ui.KV("spot-check match", ui.Bool(verdict.SpotCheckMatched)),
			))
			if !verdict.Pass {
				return fmt.Errorf("soak certification failed")
			}
			return nil
		},
	}
}
