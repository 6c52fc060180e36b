package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/crewplan/internal/gateway"
	"github.com/rahul/crewplan/internal/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enabled gateways (web, Telegram, Discord)",
	Long: `Start every gateway enabled in the config and serve planning requests
until interrupted. The web gateway listens on app.listen.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	observability.PrintBanner(cmd.OutOrStdout())

	a, err := setup(os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	gateways, err := startGateways(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for name, gw := range gateways {
		go func() {
			if err := gw.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] %s GATEWAY CRITICAL ERROR: %v\033[0m", name, err)
				stop() // stop caller if gateway dies
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				a.logger.LogHeartbeat()
				observability.PrintLiveStatus()
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	for name, gw := range gateways {
		if err := gw.Stop(); err != nil {
			log.Printf("Warning: failed to stop %s gateway: %v", name, err)
		}
	}
	log.Println("\033[95m[ EXIT ] CREWPLAN STOPPED. GOODBYE.\033[0m")
	return nil
}

func startGateways(a *app) (map[string]gateway.Gateway, error) {
	gateways := make(map[string]gateway.Gateway)

	if _, ok := a.cfg.GetGateway("web"); ok {
		gateways["web"] = gateway.NewWebGateway(a.cfg.App.Listen, a.service)
	}
	if g, ok := a.cfg.GetGateway("telegram"); ok {
		tg, err := gateway.NewTelegramGateway(g.Token, a.service)
		if err != nil {
			return nil, fmt.Errorf("telegram gateway: %w", err)
		}
		gateways["telegram"] = tg
	}
	if g, ok := a.cfg.GetGateway("discord"); ok {
		dg, err := gateway.NewDiscordGateway(g.Token, a.service)
		if err != nil {
			return nil, fmt.Errorf("discord gateway: %w", err)
		}
		gateways["discord"] = dg
	}

	if len(gateways) == 0 {
		return nil, fmt.Errorf("no gateways enabled in config")
	}
	return gateways, nil
}
