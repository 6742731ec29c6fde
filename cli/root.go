package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/nmhoang2304/AniTrack-Group07/cli/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "anitrack",
	Short:   "AniTrack command line client",
	Long:    `AniTrack tracks your anime watchlist: search the catalog, log watched episodes, and keep everything synced to the server.`,
	Version: "1.0.0",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize AniTrack configuration",
	Long:  `Create the ~/.anitrack directory with a default config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(); err != nil {
			printError(fmt.Sprintf("Initialization failed: %v", err))
			return err
		}
		configPath, _ := config.GetConfigPath()
		printSuccess("Configuration initialized!")
		fmt.Printf("Config file: %s\n", configPath)
		fmt.Println("\nNext steps:")
		fmt.Println("  anitrack auth register --username <name> --email <email>")
		fmt.Println("  anitrack search \"your favorite anime\"")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func printSuccess(message string) {
	fmt.Printf("✓ %s\n", message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "✗ %s\n", message)
}

// authedRequest sends an API request with the saved token attached.
func authedRequest(method, path string, payload interface{}) (*http.Response, []byte, error) {
	serverURL, err := config.GetServerURL()
	if err != nil {
		printError("Configuration not initialized")
		fmt.Println("Run: anitrack init")
		return nil, nil, err
	}
	token, err := config.GetAuthToken()
	if err != nil {
		printError("Not logged in")
		fmt.Println("Run: anitrack auth login --username <name>")
		return nil, nil, err
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		printError("Request failed: Server connection error")
		return nil, nil, err
	}
	defer res.Body.Close()

	data, _ := io.ReadAll(res.Body)
	return res, data, nil
}

// apiError extracts the server's error message from a failed response.
func apiError(body []byte) string {
	var errRes map[string]string
	if err := json.Unmarshal(body, &errRes); err == nil && errRes["error"] != "" {
		return errRes["error"]
	}
	return "unexpected server response"
}
