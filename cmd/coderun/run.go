package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pkt.systems/coderun"
	"pkt.systems/coderun/core"
	"pkt.systems/coderun/internal/appconfig"
	"pkt.systems/coderun/internal/termui"
	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

const interruptResetTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	var cfgPath string
	var code string
	cmd := &cobra.Command{
		Use:   "run [FILE]",
		Short: "Run source on the backend and forward stdin lines as input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var editor core.Editor
			switch {
			case cmd.Flags().Changed("code") && len(args) > 0:
				return errors.New("use either --code or FILE, not both")
			case cmd.Flags().Changed("code"):
				editor = core.NewMemoryEditor(code)
			case len(args) == 1:
				fileEditor, err := termui.NewFileEditor(args[0])
				if err != nil {
					return err
				}
				editor = fileEditor
			default:
				return errors.New("nothing to run; pass FILE or --code")
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			return runSession(cmd, cfg, editor)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&code, "code", "", "source text to run instead of FILE")
	return cmd
}

func runSession(cmd *cobra.Command, cfg appconfig.Config, editor core.Editor) error {
	ctx := cmd.Context()
	logger := pslog.Ctx(ctx)

	in := cmd.InOrStdin()
	echo := true
	if f, ok := in.(*os.File); ok {
		echo = !termui.IsTerminal(f)
	}
	display := termui.NewDisplay(cmd.OutOrStdout(), cmd.ErrOrStderr(), echo)

	client, err := coderun.New(clientConfig(cfg), coderun.ClientDeps{
		Editor:     editor,
		EventSinks: []core.EventSink{display},
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	events, unsubscribe := client.Subscribe(schema.EventFinished, schema.EventFailed, schema.EventReset)
	defer unsubscribe()

	sess := client.Session()
	pid, err := sess.Run(ctx)
	if err != nil {
		return err
	}
	logger.Debug("run started", "pid", pid.String(), "backend", cfg.Backend.BaseURL)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	var last schema.SessionEvent
	g.Go(func() error {
		defer cancel()
		ev, err := termui.NewTerminal(sess, in, events).Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		last = ev
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() == nil {
			return nil
		}
		// Interrupted: stop the remote process before exiting.
		resetCtx, resetCancel := context.WithTimeout(context.WithoutCancel(ctx), interruptResetTimeout)
		defer resetCancel()
		if err := sess.Reset(resetCtx); err != nil {
			logger.Warn("run interrupt reset failed", "err", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if last.Type == schema.EventFailed {
		return fmt.Errorf("run failed: %s", last.Err)
	}
	return nil
}
