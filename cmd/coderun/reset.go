package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/coderun"
	"pkt.systems/coderun/internal/appconfig"
	"pkt.systems/coderun/internal/backendhttp"
	"pkt.systems/coderun/internal/persist"
	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

func newResetCmd() *cobra.Command {
	var cfgPath string
	var pidFlag string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Terminate a session on the backend",
		Long:  "Terminate the process given by --pid, or the one recorded by an earlier run that did not exit cleanly.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			backend, err := backendhttp.New(backendConfig(cfg))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pid") {
				pid := schema.ParsePID(pidFlag)
				if pid.IsZero() {
					return schema.ErrMissingPID
				}
				if err := backend.Reset(ctx, pid); err != nil {
					return err
				}
				logger.Info("reset ok", "pid", pid.String())
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "terminated %s\n", pid)
				return err
			}
			store, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
			if err != nil {
				return err
			}
			pid, err := coderun.TerminateRecorded(ctx, backend, store)
			if errors.Is(err, schema.ErrNoActiveSession) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no recorded session")
				return err
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "terminated %s\n", pid)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&pidFlag, "pid", "", "process id to terminate")
	return cmd
}
