package cli

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/cli/config"
	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "System information",
	Long:  `Display system information and diagnostics.`,
}

var systemInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show system info",
	Long:  `Display detailed system information including OS, architecture, and server status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("System Information:")
		fmt.Println("-------------------")
		fmt.Printf("OS: %s\n", runtime.GOOS)
		fmt.Printf("Architecture: %s\n", runtime.GOARCH)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("CPUs: %d\n", runtime.NumCPU())

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("\nConfiguration: Not initialized")
		} else {
			configPath, _ := config.GetConfigPath()
			fmt.Println("\nConfiguration:")
			fmt.Printf("  Config Path: %s\n", configPath)
			fmt.Printf("  Server Host: %s\n", cfg.Server.Host)
			fmt.Printf("  HTTP Port: %d\n", cfg.Server.HTTPPort)
		}

		serverURL, err := config.GetServerURL()
		if err == nil {
			client := http.Client{Timeout: 3 * time.Second}
			if res, err := client.Get(serverURL + "/health"); err == nil {
				res.Body.Close()
				if res.StatusCode == http.StatusOK {
					fmt.Println("\nServer Status: Online")
				} else {
					fmt.Printf("\nServer Status: Unhealthy (%d)\n", res.StatusCode)
				}
			} else {
				fmt.Println("\nServer Status: Offline")
			}
		}

		return nil
	},
}

func init() {
	systemCmd.AddCommand(systemInfoCmd)
	rootCmd.AddCommand(systemCmd)
}
