package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/danielfrey63/qr-scanner-library/qr"
)

const (
	flagListenAddr    = "listen_addr"
	flagQRCodesFolder = "qr_codes_folder"
	flagJournalOffset = "offset"
	flagScannerDevice = "device_id"
)

func init() {
	rootCmd.PersistentFlags().String(flagListenAddr, "localhost:8080", "Listen Address")
	rootCmd.PersistentFlags().String(flagQRCodesFolder, "/tmp", "Folder to save QR codes")
}

var rootCmd = &cobra.Command{
	Use:   "qr_scanner_cli",
	Short: "qr scanner cli utilities implementation",
}

func main() {
	rootCmd.AddCommand(
		getDevicesCommand(),
		startScanCommand(),
		stopScanCommand(),
		getStatusCommand(),
		getRecordsCommand(),
		encodeQRCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute root command: %v", err)
	}
}

func rawGetRequest(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to do http request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return responseBody, nil
}

func rawPostRequest(url string, payload interface{}) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to do http request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return responseBody, nil
}

func getDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get_devices",
		Short: "returns the list of available video input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}

			responseBody, err := rawGetRequest(fmt.Sprintf("http://%s/getDevices", listenAddr))
			if err != nil {
				return fmt.Errorf("failed to get devices: %w", err)
			}

			var response DevicesResponse
			if err = json.Unmarshal(responseBody, &response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %v", err)
			}
			if response.ErrorMessage != "" {
				return fmt.Errorf("failed to get devices: %s", response.ErrorMessage)
			}

			if len(response.Result) == 0 {
				fmt.Println("no video input devices found")
				return nil
			}
			for _, device := range response.Result {
				fmt.Printf("Device ID: %s\n", device.ID)
				fmt.Printf("Label: %s\n", device.Label)
				fmt.Println("-----------------------------------------------------")
			}
			return nil
		},
	}
}

func startScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start_scan",
		Short: "starts a scan session on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			deviceID, err := cmd.Flags().GetString(flagScannerDevice)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}

			responseBody, err := rawPostRequest(
				fmt.Sprintf("http://%s/startScan", listenAddr),
				map[string]string{"device_id": deviceID})
			if err != nil {
				return fmt.Errorf("failed to start scan: %w", err)
			}

			var response OkResponse
			if err = json.Unmarshal(responseBody, &response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %v", err)
			}
			if response.ErrorMessage != "" {
				return fmt.Errorf("failed to start scan: %s", response.ErrorMessage)
			}

			color.Green("scan session started")
			return nil
		},
	}
	cmd.Flags().String(flagScannerDevice, "", "Camera device ID, daemon default when empty")
	return cmd
}

func stopScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop_scan",
		Short: "stops the running scan session",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}

			responseBody, err := rawPostRequest(
				fmt.Sprintf("http://%s/stopScan", listenAddr), struct{}{})
			if err != nil {
				return fmt.Errorf("failed to stop scan: %w", err)
			}

			var response OkResponse
			if err = json.Unmarshal(responseBody, &response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %v", err)
			}
			if response.ErrorMessage != "" {
				return fmt.Errorf("failed to stop scan: %s", response.ErrorMessage)
			}

			color.Yellow("scan session stopped")
			return nil
		},
	}
}

func getStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get_status",
		Short: "returns the scan session lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}

			responseBody, err := rawGetRequest(fmt.Sprintf("http://%s/getStatus", listenAddr))
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			var response StatusResponse
			if err = json.Unmarshal(responseBody, &response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %v", err)
			}
			if response.ErrorMessage != "" {
				return fmt.Errorf("failed to get status: %s", response.ErrorMessage)
			}

			status := response.Result
			if status.SessionID != "" {
				fmt.Printf("Session ID: %s\n", status.SessionID)
			}
			if status.DeviceID != "" {
				fmt.Printf("Device ID: %s\n", status.DeviceID)
			}
			switch status.State {
			case "scanning":
				color.Green("State: %s", status.State)
			case "acquiring":
				color.Yellow("State: %s", status.State)
			default:
				fmt.Printf("State: %s\n", status.State)
			}
			return nil
		},
	}
}

func getRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get_records",
		Short: "returns journaled scan results starting from the given offset",
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := cmd.Flags().GetString(flagListenAddr)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}
			offset, err := cmd.Flags().GetUint64(flagJournalOffset)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}

			responseBody, err := rawGetRequest(
				fmt.Sprintf("http://%s/getRecords?offset=%d", listenAddr, offset))
			if err != nil {
				return fmt.Errorf("failed to get records: %w", err)
			}

			var response RecordsResponse
			if err = json.Unmarshal(responseBody, &response); err != nil {
				return fmt.Errorf("failed to unmarshal response: %v", err)
			}
			if response.ErrorMessage != "" {
				return fmt.Errorf("failed to get records: %s", response.ErrorMessage)
			}

			for _, record := range response.Result {
				fmt.Printf("Offset: %d\n", record.Offset)
				fmt.Printf("Record ID: %s\n", record.ID)
				fmt.Printf("Device ID: %s\n", record.DeviceID)
				fmt.Printf("Scanned at: %s\n", record.CreatedAt.Format(time.RFC3339))
				fmt.Printf("Content: %s\n", record.Content)
				fmt.Println("-----------------------------------------------------")
			}
			return nil
		},
	}
	cmd.Flags().Uint64(flagJournalOffset, 0, "Journal offset to read from")
	return cmd
}

func encodeQRCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode_qr [data]",
		Args:  cobra.ExactArgs(1),
		Short: "encodes the given data into a QR code PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, err := cmd.Flags().GetString(flagQRCodesFolder)
			if err != nil {
				return fmt.Errorf("failed to read configuration: %v", err)
			}

			path := filepath.Join(folder, fmt.Sprintf("qr_%d.png", time.Now().Unix()))
			if err := qr.WriteQR(path, []byte(args[0])); err != nil {
				return fmt.Errorf("failed to encode QR: %w", err)
			}

			fmt.Printf("QR code saved to %s\n", path)
			return nil
		},
	}
}
