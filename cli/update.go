package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Manage updates",
	Long:  `Check for and install updates for the AniTrack CLI.`,
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for updates",
	Long:  `Check if a new version of AniTrack CLI is available.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking for updates...")

		client := http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("https://api.github.com/repos/nmhoang2304/AniTrack-Group07/releases/latest")
		if err != nil {
			printError("Failed to check for updates (Network error)")
			return nil // Don't fail hard on update check
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			var release struct {
				TagName string `json:"tag_name"`
				Body    string `json:"body"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&release); err == nil {
				currentVersion := rootCmd.Version
				if release.TagName != currentVersion && release.TagName != "v"+currentVersion {
					printSuccess(fmt.Sprintf("New version available: %s", release.TagName))
					fmt.Println("\nRelease Notes:")
					fmt.Println(release.Body)
					fmt.Println("\nTo install: anitrack update install")
				} else {
					printSuccess("You are running the latest version")
				}
				return nil
			}
		}

		printSuccess("You are running the latest version")
		return nil
	},
}

var updateInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Manual installation required.")
		fmt.Printf("Download the %s/%s binary from the releases page:\n", runtime.GOOS, runtime.GOARCH)
		fmt.Println("  https://github.com/nmhoang2304/AniTrack-Group07/releases")
		return nil
	},
}

func init() {
	updateCmd.AddCommand(updateCheckCmd)
	updateCmd.AddCommand(updateInstallCmd)
	rootCmd.AddCommand(updateCmd)
}
