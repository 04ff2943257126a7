package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/logx"

	"stocketl/internal/cli"
	"stocketl/internal/config"
	"stocketl/internal/svc"
)

const shutdownTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "stocketl",
		Short:         "Extract stock data for a fixed universe and export it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "file", "f", "etc/stocketl.yaml", "the config file")

	rootCmd.AddCommand(newRunCmd(&configFile))
	rootCmd.AddCommand(newScheduleCmd(&configFile))
	rootCmd.AddCommand(newConfigCmd(&configFile))
	return rootCmd
}

func newRunCmd(configFile *string) *cobra.Command {
	var kinds []string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full extraction and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := setup(*configFile, kinds)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := sc.Runner.Run(ctx); err != nil {
				logx.Errorf("[run] %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "limit the run to these kinds (info, prices, balance-sheet, income-statement)")
	return cmd
}

func newScheduleCmd(configFile *string) *cobra.Command {
	var (
		runNow bool
		expr   string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run extractions on the configured cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := setup(*configFile, nil)
			if err != nil {
				return err
			}
			schedule := sc.Config.Schedule
			if expr != "" {
				schedule = expr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			job := func() {
				if _, err := sc.Runner.Run(ctx); err != nil {
					logx.Errorf("[schedule] run failed: %v", err)
				}
			}

			c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
			id, err := c.AddFunc(schedule, job)
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			c.Start()
			logx.Infof("[schedule] started with %q, next run at %s", schedule, c.Entry(id).Next.Format(time.RFC3339))

			if runNow {
				// The wrapped job shares the overlap guard with scheduled runs.
				go c.Entry(id).WrappedJob.Run()
			}

			<-ctx.Done()
			logx.Info("[schedule] shutdown signal received, waiting for the current run")
			select {
			case <-c.Stop().Done():
				logx.Info("[schedule] stopped cleanly")
			case <-time.After(shutdownTimeout):
				logx.Info("[schedule] shutdown timeout exceeded, forcing exit")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "also run once immediately")
	cmd.Flags().StringVar(&expr, "cron", "", "override the configured cron expression")
	return cmd
}

func newConfigCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			for _, line := range cli.ConfigSummaryLines(cfg) {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", line)
			}
			return nil
		},
	}
}

func setup(configFile string, kinds []string) (*svc.ServiceContext, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] %v\n", err)
		return nil, err
	}
	if len(kinds) > 0 {
		cfg.Kinds = kinds
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logx.MustSetup(cfg.Log)
	cli.LogConfigSummary(cfg)
	logx.Infof("[main] config %s (%s)", cfg.MainPath(), strings.ToUpper(cfg.Env))

	sc, err := svc.NewServiceContext(*cfg)
	if err != nil {
		logx.Errorf("[main] %v", err)
		return nil, err
	}
	logx.Infof("[main] kinds %v, sinks %d", sc.Merger.Kinds(), len(sc.Sinks))
	if sc.Journal != nil {
		logx.Infof("[main] journal dir %s", sc.Journal.Dir())
	}
	return sc, nil
}
