package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/tellocmd/app"
	"github.com/kilianp07/tellocmd/core/drone"
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [arg]",
	Short: "Send one command to the drone and print the outcome",
	Long: "Enters SDK mode, sends the command and prints ok, error or the queried value.\n" +
		"Commands: " + strings.Join(sendVerbs(), ", "),
	Args: cobra.RangeArgs(1, 2),
	RunE: sendCommand,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

type action struct {
	arg bool
	// bits bounds the numeric argument.
	bits int
	run  func(ctx context.Context, c *drone.Client, n uint64) (string, error)
}

func boolAction(f func(*drone.Client, context.Context) (bool, error)) action {
	return action{run: func(ctx context.Context, c *drone.Client, _ uint64) (string, error) {
		return outcome(f(c, ctx))
	}}
}

func cmAction(f func(*drone.Client, context.Context, uint8) (bool, error)) action {
	return action{arg: true, bits: 8, run: func(ctx context.Context, c *drone.Client, n uint64) (string, error) {
		return outcome(f(c, ctx, uint8(n)))
	}}
}

func wordAction(f func(*drone.Client, context.Context, uint16) (bool, error)) action {
	return action{arg: true, bits: 16, run: func(ctx context.Context, c *drone.Client, n uint64) (string, error) {
		return outcome(f(c, ctx, uint16(n)))
	}}
}

func queryAction(f func(*drone.Client, context.Context) (float64, error)) action {
	return action{run: func(ctx context.Context, c *drone.Client, _ uint64) (string, error) {
		v, err := f(c, ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}}
}

var actions = map[string]action{
	drone.CmdCommand:          {run: enteredSDK},
	drone.CmdTakeOff:          boolAction((*drone.Client).TakeOff),
	drone.CmdLand:             boolAction((*drone.Client).Land),
	drone.CmdStreamOn:         boolAction((*drone.Client).StreamOn),
	drone.CmdStreamOff:        boolAction((*drone.Client).StreamOff),
	drone.CmdEmergency:        boolAction((*drone.Client).Emergency),
	drone.CmdUp:               cmAction((*drone.Client).Up),
	drone.CmdDown:             cmAction((*drone.Client).Down),
	drone.CmdLeft:             cmAction((*drone.Client).Left),
	drone.CmdRight:            cmAction((*drone.Client).Right),
	drone.CmdForward:          cmAction((*drone.Client).Forward),
	drone.CmdBack:             cmAction((*drone.Client).Back),
	drone.CmdClockwise:        wordAction((*drone.Client).Clockwise),
	drone.CmdCounterClockwise: wordAction((*drone.Client).CounterClockwise),
	drone.CmdSpeed:            wordAction((*drone.Client).SetSpeed),
	drone.QuerySpeed:          queryAction((*drone.Client).Speed),
	drone.QueryBattery:        queryAction((*drone.Client).Battery),
}

// enteredSDK reports the Start that precedes every action.
func enteredSDK(context.Context, *drone.Client, uint64) (string, error) { return "ok", nil }

func sendVerbs() []string {
	verbs := make([]string, 0, len(actions))
	for v := range actions {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

func outcome(ok bool, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if ok {
		return "ok", nil
	}
	return "error", nil
}

// parseAction resolves the verb and its numeric argument.
func parseAction(args []string) (action, uint64, error) {
	act, ok := actions[args[0]]
	if !ok {
		return action{}, 0, fmt.Errorf("unknown command %q", args[0])
	}
	if !act.arg {
		if len(args) > 1 {
			return action{}, 0, fmt.Errorf("%s takes no argument", args[0])
		}
		return act, 0, nil
	}
	if len(args) < 2 {
		return action{}, 0, fmt.Errorf("%s needs a numeric argument", args[0])
	}
	n, err := strconv.ParseUint(args[1], 10, act.bits)
	if err != nil {
		return action{}, 0, fmt.Errorf("%s argument: %w", args[0], err)
	}
	return act, n, nil
}

func sendCommand(cmd *cobra.Command, args []string) error {
	act, n, err := parseAction(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.MQTT.Enabled = false
	cfg.Metrics.PrometheusAddr = ""
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	c, err := svc.Dial()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := commandContext(cmd.Context())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Drone.CommandTimeout())
	defer cancel()

	if ok, err := c.Start(ctx, 0); err != nil {
		return fmt.Errorf("enter SDK mode: %w", err)
	} else if !ok {
		return errors.New("drone refused SDK mode")
	}
	out, err := act.run(ctx, c, n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
