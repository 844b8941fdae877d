package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/coderun/internal/appconfig"
	"pkt.systems/coderun/internal/mockbackend"
)

func newBackendMockCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "backend-mock",
		Short: "Serve a scripted mock execution backend for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Mock.Addr
			}
			return mockbackend.New().ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
