package main

import (
	"fmt"
	"os"

	"vigil/cmd/vigil/gatecmd"
	"vigil/cmd/vigil/lockcmd"
	"vigil/cmd/vigil/reportcmd"
	"vigil/cmd/vigil/soakcmd"
	"vigil/cmd/vigil/ui"
	"vigil/internal/logging"
	"vigil/internal/support/buildinfo"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug      bool
		noColor    bool
		configPath string
	)
	if err := logging.Configure("warn"); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "vigil",
		Short:         "Reliability certification for long-running service stacks",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if debug {
				level = "debug"
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureColor(noColor)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")
	root.PersistentFlags().StringVar(&configPath, "config", "vigil.yaml", "Certification config file")

	root.AddCommand(soakcmd.Cmd(&configPath))
	root.AddCommand(gatecmd.Cmd(&configPath))
	root.AddCommand(lockcmd.Cmd(&configPath))
	root.AddCommand(reportcmd.Cmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
