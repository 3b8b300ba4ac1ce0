// zmtalon: ZoneMinder metrics collector & Prometheus exporter.
// Author: vesaa | License: MIT | https://github.com/vesaa/zmtalon
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vesaa/zmtalon/internal/app"
	"github.com/vesaa/zmtalon/internal/config"
	"github.com/vesaa/zmtalon/internal/logger"
	"github.com/vesaa/zmtalon/internal/zmsim"
)

const asciiLogo = `
 ███████╗███╗   ███╗████████╗ █████╗ ██╗      ██████╗ ███╗   ██╗
 ╚══███╔╝████╗ ████║╚══██╔══╝██╔══██╗██║     ██╔═══██╗████╗  ██║
   ███╔╝ ██╔████╔██║   ██║   ███████║██║     ██║   ██║██╔██╗ ██║
  ███╔╝  ██║╚██╔╝██║   ██║   ██╔══██║██║     ██║   ██║██║╚██╗██║
 ███████╗██║ ╚═╝ ██║   ██║   ██║  ██║███████╗╚██████╔╝██║ ╚████║
 ╚══════╝╚═╝     ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═══╝
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo)
	fmt.Printf("  ► zmtalon %s  |  Author: vesaa  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:   "zmtalon",
		Short: "zmtalon: ZoneMinder metrics collector",
		Long: `zmtalon polls a ZoneMinder server for per-camera FPS, bandwidth, event
counts and event disk usage, keeps its API tokens fresh, and exposes the
result as Prometheus metrics and JSON.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Config file (default ./config.yaml or ~/.zmtalon/config.yaml)")
	root.PersistentFlags().String("url", "", "ZoneMinder base URL, e.g. http://127.0.0.1/zm (overrides config)")
	root.PersistentFlags().String("user", "", "ZoneMinder user; empty disables authentication (overrides config)")
	root.PersistentFlags().String("pass", "", "ZoneMinder password (overrides config)")

	// ── run subcommand ────────────────────────────────────────────────────────
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Collect periodically and serve the exporter",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("RUN")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("listen"); cmd.Flags().Changed("listen") {
				cfg.ListenAddr = addr
			}

			log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			gin.SetMode(gin.ReleaseMode)
			a, err := app.New(cfg, log)
			if err != nil {
				return fmt.Errorf("initializing collector: %w", err)
			}
			defer a.Close()

			fmt.Printf("  ✓ ZoneMinder → %s\n", cfg.URL)
			if cfg.AuthEnabled() {
				fmt.Printf("  ✓ User:        %s (tokens: %s)\n", cfg.User, tokenLocation(cfg))
			} else {
				fmt.Println("  ✓ Authentication disabled")
			}
			if cfg.ListenAddr != "" {
				fmt.Printf("  ✓ Exporter  → http://%s/metrics\n", cfg.ListenAddr)
			}
			fmt.Printf("  ✓ Interval:    %s\n\n", cfg.Interval())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}
	runCmd.Flags().Int("interval", 0, "Collection period in seconds (overrides config)")
	runCmd.Flags().String("listen", "", "Exporter listen address; empty disables it (overrides config)")

	// ── once subcommand ───────────────────────────────────────────────────────
	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single collection cycle and print the metrics as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			a, err := app.New(cfg, log)
			if err != nil {
				return fmt.Errorf("initializing collector: %w", err)
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			onceErr := a.Once(ctx)

			snap, _ := a.State.Snapshot()
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return onceErr
		},
	}

	// ── simulate subcommand ───────────────────────────────────────────────────
	simCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Start a fake ZoneMinder API for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SIMULATE")

			addr, _ := cmd.Flags().GetString("listen")
			user, _ := cmd.Flags().GetString("user")
			pass, _ := cmd.Flags().GetString("pass")
			cameras, _ := cmd.Flags().GetInt("cameras")
			accessTTL, _ := cmd.Flags().GetDuration("access-ttl")
			refreshTTL, _ := cmd.Flags().GetDuration("refresh-ttl")

			sim := zmsim.New(zmsim.Options{
				BasePath:   "/zm",
				User:       user,
				Password:   pass,
				AccessTTL:  accessTTL,
				RefreshTTL: refreshTTL,
			})
			sim.SetMonitors(demoMonitors(cameras)...)

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{Addr: addr, Handler: sim.Handler(), ReadHeaderTimeout: 10 * time.Second}

			fmt.Printf("  ✓ Fake ZoneMinder → http://%s/zm\n", addr)
			if user != "" {
				fmt.Printf("  ✓ Login: %s / %s\n", user, pass)
			}
			fmt.Printf("  ✓ Cameras: %d\n\n", cameras)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				fmt.Println("\n  → Shutting down gracefully…")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	simCmd.Flags().String("listen", "127.0.0.1:8080", "Listen address")
	simCmd.Flags().Int("cameras", 3, "Number of simulated cameras")
	simCmd.Flags().Duration("access-ttl", time.Hour, "Access token lifetime")
	simCmd.Flags().Duration("refresh-ttl", 24*time.Hour, "Refresh token lifetime")

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print zmtalon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zmtalon %s  |  Author: vesaa\n", version)
		},
	}

	root.AddCommand(runCmd, onceCmd, simCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config and applies CLI flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.URL = url
	}
	if cmd.Flags().Changed("user") {
		cfg.User, _ = cmd.Flags().GetString("user")
	}
	if pass, _ := cmd.Flags().GetString("pass"); pass != "" {
		cfg.Password = pass
	}
	if f := cmd.Flags().Lookup("interval"); f != nil && f.Changed {
		cfg.UpdateEverySeconds, _ = cmd.Flags().GetInt("interval")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func tokenLocation(cfg *config.Config) string {
	if cfg.TokenStore == config.TokenStoreSQLite {
		return cfg.TokenDB
	}
	return cfg.TokenFile
}

func demoMonitors(n int) []zmsim.Monitor {
	functions := []string{"Modect", "Record", "Monitor", "Mocord", "None"}
	out := make([]zmsim.Monitor, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, zmsim.Monitor{
			ID:               fmt.Sprintf("%d", i),
			Name:             fmt.Sprintf("Camera %d", i),
			Function:         functions[(i-1)%len(functions)],
			Enabled:          true,
			CaptureFPS:       float64(5 * i),
			CaptureBandwidth: float64(256 * i),
			TotalEvents:      int64(10 * i),
			DiskSpaceBytes:   int64(i) << 30,
		})
	}
	return out
}
