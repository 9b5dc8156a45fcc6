// Package lockcmd implements "vigil lock": the two-run determinism
// certification.
package lockcmd

import (
	"fmt"
	"os"
	"time"

	"vigil/cmd/vigil/cmdutil"
	"vigil/cmd/vigil/ui"
	adapterexec "vigil/internal/adapter/exec"
	"vigil/internal/lock"

	"github.com/spf13/cobra"
)

// Cmd returns the "vigil lock" command. configFlag points at the root
// persistent flag value.
func Cmd(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Run the determinism lock",
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

			runID, err := env.Store.CreateRun(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, ui.InfoMsg("lock run %d: workload %s, two executions", runID, ui.Accent(cfg.Lock.Workload)))

			l := &lock.Lock{
				Runner: &adapterexec.WorkloadRunner{
					Command: cfg.Lock.Command,
					Args:    cfg.Lock.Args,
					Dir:     cfg.Lock.Dir,
				},
				Restart:  env.Restart(sup),
				Workload: cfg.Lock.Workload,
			}

			res, err := l.Run(ctx)
			if err != nil {
				return err
			}
			if err := env.Store.SaveLockResult(ctx, runID, res, time.Now()); err != nil {
				return err
			}

			fmt.Println(ui.Bold("lock verdict: ") + ui.PassFail(res.Deterministic))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("run 1", fmt.Sprintf("%d passed / %d failed", res.Run1Passed, res.Run1Failed)),
				ui.KV("run 2", fmt.Sprintf("%d passed / %d failed", res.Run2Passed, res.Run2Failed)),
			))
			if !res.Deterministic {
				return lock.ErrNonDeterministic
			}
			return nil
		},
	}
}
