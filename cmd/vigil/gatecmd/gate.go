// Package gatecmd implements "vigil gate": the start/stop cycle
// certification.
package gatecmd

import (
	"fmt"
	"os"
	"time"

	"vigil/cmd/vigil/cmdutil"
	"vigil/cmd/vigil/ui"
	"vigil/internal/gate"

	"github.com/spf13/cobra"
)

// Cmd returns the "vigil gate" command. configFlag points at the root
// persistent flag value.
func Cmd(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gate",
		Short: "Run the start/stop cycle gate",
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
			fmt.Fprintln(os.Stderr, ui.InfoMsg("gate run %d: %d cycles", runID, cfg.Gate.Cycles))

			g := &gate.Gate{
				Roster:         env.Roster,
				Supervisor:     sup,
				Prober:         env.Prober,
				Clock:          env.Clock,
				Cycles:         cfg.Gate.Cycles,
				StartupTimeout: cfg.Gate.StartupTimeout,
				SettleDelay:    cfg.Gate.SettleDelay,
				OnEvent: func(kind, message string) {
					fmt.Fprintln(os.Stderr, ui.Muted("  "+kind+" "+message))
				},
			}

			res, err := g.Run(ctx)
			if err != nil {
				return err
			}
			if err := env.Store.SaveGateCycles(ctx, runID, res); err != nil {
				return err
			}

			rows := make([][]string, 0, len(res.Cycles))
			for _, c := range res.Cycles {
				rows = append(rows, []string{
					fmt.Sprintf("%d", c.Cycle),
					c.Phase.String(),
					fmt.Sprintf("%d", c.Zombies),
					c.Reason,
				})
			}
			fmt.Println(ui.Table([]string{"cycle", "outcome", "zombies", "reason"}, rows))
			fmt.Println(ui.Bold("gate verdict: ") + ui.PassFail(res.Pass))
			if !res.Pass {
				return fmt.Errorf("cycle gate failed")
			}
			return nil
		},
	}
}
