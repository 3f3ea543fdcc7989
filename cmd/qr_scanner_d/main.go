package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/spf13/cobra"

	"github.com/danielfrey63/qr-scanner-library/camera"
	"github.com/danielfrey63/qr-scanner-library/client/api/http_api"
	"github.com/danielfrey63/qr-scanner-library/client/services/scan"
	"github.com/danielfrey63/qr-scanner-library/common"
	"github.com/danielfrey63/qr-scanner-library/config"
	"github.com/danielfrey63/qr-scanner-library/journal"
	"github.com/danielfrey63/qr-scanner-library/qr"
)

const (
	flagConfig         = "config"
	flagListenAddr     = "listen_addr"
	flagDeviceID       = "device_id"
	flagScanInterval   = "scan_interval_ms"
	flagStopOnScan     = "stop_on_scan"
	flagJournalBackend = "journal_backend"
	flagJournalDBDSN   = "journal_dbdsn"
	flagShowUI         = "show_ui"

	shutdownTimeout = 10 * time.Second
	windowName      = "qr_scanner_d"
)

func init() {
	rootCmd.PersistentFlags().String(flagConfig, "", "Path to the config file (optional)")
	rootCmd.PersistentFlags().String(flagListenAddr, "", "Listen Address, overrides the config")
	rootCmd.PersistentFlags().String(flagDeviceID, "", "Default camera device ID")
	rootCmd.PersistentFlags().Int(flagScanInterval, 0, "Delay between frame samples in milliseconds")
	rootCmd.PersistentFlags().Bool(flagStopOnScan, true, "Stop the session after the first decoded code")
	rootCmd.PersistentFlags().String(flagJournalBackend, "", "Journal backend: file or leveldb")
	rootCmd.PersistentFlags().String(flagJournalDBDSN, "", "Journal DBDSN")
	rootCmd.PersistentFlags().Bool(flagShowUI, false, "Show a preview window of the camera stream")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if addr, _ := cmd.Flags().GetString(flagListenAddr); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse listen address %q: %w", addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse listen port %q: %w", portStr, err)
		}
		cfg.HttpApiConfig.Host = host
		cfg.HttpApiConfig.Port = port
	}
	if deviceID, _ := cmd.Flags().GetString(flagDeviceID); deviceID != "" {
		cfg.ScannerConfig.DeviceID = deviceID
	}
	if interval, _ := cmd.Flags().GetInt(flagScanInterval); interval > 0 {
		cfg.ScannerConfig.ScanIntervalMs = interval
	}
	if cmd.Flags().Changed(flagStopOnScan) {
		cfg.ScannerConfig.StopOnScan, _ = cmd.Flags().GetBool(flagStopOnScan)
	}
	if backend, _ := cmd.Flags().GetString(flagJournalBackend); backend != "" {
		cfg.JournalConfig.Backend = backend
	}
	if dbdsn, _ := cmd.Flags().GetString(flagJournalDBDSN); dbdsn != "" {
		cfg.JournalConfig.DBDSN = dbdsn
	}
	if cmd.Flags().Changed(flagShowUI) {
		cfg.ScannerConfig.ShowUI, _ = cmd.Flags().GetBool(flagShowUI)
	}

	return cfg, nil
}

func newJournal(cfg *config.JournalConfig) (journal.Journal, error) {
	switch cfg.Backend {
	case "leveldb":
		return journal.NewLevelDBJournal(cfg.DBDSN, cfg.Topic)
	case "file":
		if cfg.LockFile != "" {
			return journal.NewFileJournal(cfg.DBDSN, cfg.LockFile)
		}
		return journal.NewFileJournal(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}

func newSink(cfg *config.KafkaSinkConfig) (journal.Sink, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	tlsConfig, err := cfg.TLS()
	if err != nil {
		return nil, fmt.Errorf("failed to create tls config: %w", err)
	}
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, fmt.Errorf("failed to parse producer credentials: %w", err)
	}

	var mechanism *plain.Mechanism
	if creds != nil {
		mechanism = creds.Mechanism()
	}
	return journal.NewKafkaSink(cfg.Broker, cfg.Topic, tlsConfig, mechanism, cfg.Timeout()), nil
}

func startScannerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "starts the qr scanner daemon",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				log.Fatalf("failed to load configuration: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			logger := common.NewLogger("qr_scanner_d")

			jrnl, err := newJournal(cfg.JournalConfig)
			if err != nil {
				log.Fatalf("failed to init journal: %v", err)
			}

			sink, err := newSink(cfg.KafkaSink)
			if err != nil {
				log.Fatalf("failed to init kafka sink: %v", err)
			}

			provider := camera.NewGoCVProvider(logger)
			acquirer := camera.NewAcquirer(provider, logger)
			if timeout := cfg.ScannerConfig.ReadinessTimeout(); timeout > 0 {
				acquirer.ReadinessTimeout = timeout
			}
			surface := camera.NewGoCVSurface(windowName, cfg.ScannerConfig.ShowUI)
			decoder := qr.NewZXingDecoder()

			service, err := scan.NewService(
				ctx, cfg.ScannerConfig, acquirer, decoder, surface, jrnl, sink, logger)
			if err != nil {
				log.Fatalf("failed to init scan service: %v", err)
			}

			apiProvider := &http_api.RESTApiProvider{}
			if err := apiProvider.NewServer(cfg, service); err != nil {
				log.Fatalf("failed to init HTTP server: %v", err)
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigs

				log.Println("Received signal, stopping scanner...")
				cancel()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer shutdownCancel()
				if err := apiProvider.Stop(shutdownCtx); err != nil {
					log.Printf("failed to stop HTTP server: %v", err)
				}
				if err := service.Close(); err != nil {
					log.Printf("failed to close scan service: %v", err)
				}
				if err := surface.Close(); err != nil {
					log.Printf("failed to close surface: %v", err)
				}

				log.Println("Scanner stopped, exiting")
				os.Exit(0)
			}()

			logger.Log("starting HTTP API on %s...", cfg.HttpApiConfig.ListenAddr())
			if err := apiProvider.Start(); err != nil {
				log.Fatalf("HTTP server error: %v", err)
			}
		},
	}
}

var rootCmd = &cobra.Command{
	Use:   "qr_scanner_d",
	Short: "qr scanner daemon implementation",
}

func main() {
	rootCmd.AddCommand(
		startScannerCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute root command: %v", err)
	}
}
