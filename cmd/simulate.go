package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/tellocmd/infra/logger"
	"github.com/kilianp07/tellocmd/simulator"
)

var simCfg simulator.Config

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated drone on a local UDP port",
	RunE:  simulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simCfg.Addr, "addr", "127.0.0.1:8889", "UDP listen address")
	f.Float64Var(&simCfg.BatteryPercent, "battery", 100, "initial battery percent")
	f.Float64Var(&simCfg.IdleDrain, "idle-drain", 0.2, "battery percent lost per minute on the ground")
	f.Float64Var(&simCfg.FlyingDrain, "flying-drain", 7, "battery percent lost per minute in the air")
	f.DurationVar(&simCfg.ReplyLatency, "latency", 0, "delay before each reply")
	f.Float64Var(&simCfg.DropRate, "drop-rate", 0, "probability of not replying")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext(cmd.Context())
	defer stop()

	d, err := simulator.Listen(simCfg, simulator.WithLogger(logger.New("simulator")))
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Run(ctx)
}
