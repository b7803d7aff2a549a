// Command web runs the REM report HTTP service: extraction runs over a
// REST API, report table access, live progress over WebSocket and
// Prometheus metrics.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"remcli/internal/app"
	"remcli/internal/config"
	"remcli/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "config file path (default: search config.yaml and configs/config.yaml)")
	port := flag.Int("port", 0, "listen port, overriding the configured server port")
	version := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.FullVersion())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port != 0 {
		if *port < 1 || *port > 65535 {
			slog.Error("invalid port flag", slog.Int("port", *port))
			os.Exit(1)
		}
		cfg.Server.Port = *port
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("service init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("service exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig loads the layered configuration from the named file or the
// probed default locations. The server refuses to start on a broken
// configuration rather than fall back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
