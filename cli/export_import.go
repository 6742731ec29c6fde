package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/nmhoang2304/AniTrack-Group07/cli/config"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	importInput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your library",
	Long:  `Export your library to CSV or JSON. The server builds the file so the export always matches the synced state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFormat)
		if format != "csv" && format != "json" {
			return fmt.Errorf("unsupported format: %s", exportFormat)
		}

		res, body, err := authedRequest(http.MethodGet, "/users/library/export?format="+format, nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Export failed: %s", apiError(body)))
			return fmt.Errorf("export failed")
		}

		if exportOutput == "" {
			exportOutput = "anitrack_library." + format
		}
		if err := os.WriteFile(exportOutput, body, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		printSuccess(fmt.Sprintf("Library exported to %s", exportOutput))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a library file",
	Long:  `Import library entries from a CSV file. Column names are matched case-insensitively ("mal_id", "id", and "anime_id" all work); rows already in your library are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importInput == "" {
			return fmt.Errorf("input file is required (--input)")
		}

		file, err := os.Open(importInput)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()

		serverURL, err := config.GetServerURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: anitrack init")
			return err
		}
		token, err := config.GetAuthToken()
		if err != nil {
			printError("Not logged in")
			return err
		}

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", importInput)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file); err != nil {
			return err
		}
		writer.Close()

		req, err := http.NewRequest(http.MethodPost, serverURL+"/users/library/import", &buf)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		res, err := http.DefaultClient.Do(req)
		if err != nil {
			printError("Import failed: Server connection error")
			return err
		}
		defer res.Body.Close()

		body, _ := io.ReadAll(res.Body)
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Import failed: %s", apiError(body)))
			return fmt.Errorf("import failed")
		}

		var report struct {
			Imported int `json:"imported"`
			Skipped  int `json:"skipped"`
		}
		json.Unmarshal(body, &report)

		printSuccess(fmt.Sprintf("Imported %d entries (%d skipped)", report.Imported, report.Skipped))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format (csv or json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "Input file path")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
