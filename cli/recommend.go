package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Get anime recommendations",
	Long:  `Ask for recommendations based on the titles in your library. With an empty library you get beginner picks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Collect tracked titles first; the server caps how many it uses.
		res, body, err := authedRequest(http.MethodGet, "/users/library", nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to load library: %s", apiError(body)))
			return fmt.Errorf("recommend failed")
		}

		var library struct {
			Entries []struct {
				Title string `json:"title"`
			} `json:"entries"`
		}
		json.Unmarshal(body, &library)

		titles := make([]string, 0, len(library.Entries))
		for _, e := range library.Entries {
			titles = append(titles, e.Title)
		}

		fmt.Println("Fetching recommendations...")
		res, body, err = authedRequest(http.MethodPost, "/users/recommendations",
			map[string]interface{}{"titles": titles})
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Recommendations failed: %s", apiError(body)))
			return fmt.Errorf("recommend failed")
		}

		var result struct {
			Text string `json:"text"`
		}
		json.Unmarshal(body, &result)

		fmt.Println()
		fmt.Println(result.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
