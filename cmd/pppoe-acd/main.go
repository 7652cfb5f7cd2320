// Command pppoe-acd runs (or queries) a PPPoE discovery access
// concentrator driven by a TOML configuration file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/accelgo/pppoeacd/config"
	"github.com/accelgo/pppoeacd/pppengine"
	"github.com/accelgo/pppoeacd/pppoe"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "pppoe-acd",
		Short: "PPPoE discovery access concentrator",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/pppoe-acd.toml", "path to the TOML configuration file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newStatCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the access concentrator on every configured interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every discovery frame sent and received")
	return cmd
}

func runServe(verbose bool) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	base := cfg.ServerConfig()
	base.Verbose = base.Verbose || verbose
	base.Engine = pppengine.NewLoopback()
	base.Logger = &logger

	reg := pppoe.NewRegistry(pppoe.NewStats())

	ctl, err := pppoe.ListenControl(cfg.ControlSocket, reg)
	if err != nil {
		return fmt.Errorf("control socket %q: %w", cfg.ControlSocket, err)
	}
	defer ctl.Close()

	for _, ifspec := range cfg.Interfaces {
		s, err := pppoe.StartInterface(reg, base, ifspec)
		if err != nil {
			return fmt.Errorf("starting interface %q: %w", ifspec, err)
		}
		logger.Info().Str("ifname", s.Ifname()).Msg("pppoe: interface started")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGINT, unix.SIGTERM)
	<-sig

	logger.Info().Msg("pppoe: shutting down")
	for _, ifname := range reg.Interfaces() {
		reg.Stop(ifname)
	}
	time.Sleep(200 * time.Millisecond) // give in-flight PADTs a chance to go out
	return nil
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Print discovery/session counters for a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStat()
		},
	}
}

func runStat() error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	snap, err := pppoe.QueryControl(cfg.ControlSocket)
	if err != nil {
		return fmt.Errorf("querying %s: %w", cfg.ControlSocket, err)
	}
	fmt.Printf("starting:      %d\n", snap.Starting)
	fmt.Printf("active:        %d\n", snap.Active)
	fmt.Printf("delayed-pado:  %d\n", snap.DelayedPADO)
	fmt.Printf("padi recv/drop: %d/%d\n", snap.PADIRecv, snap.PADIDrop)
	fmt.Printf("pado sent:     %d\n", snap.PADOSent)
	fmt.Printf("padr recv/dup: %d/%d\n", snap.PADRRecv, snap.PADRDupRecv)
	fmt.Printf("pads sent:     %d\n", snap.PADSSent)
	return nil
}
