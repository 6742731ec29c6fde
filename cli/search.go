package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nmhoang2304/AniTrack-Group07/cli/config"
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the anime catalog",
	Long:  `Search the external anime catalog by title.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]

		serverURL, err := config.GetServerURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: anitrack init")
			return err
		}

		searchURL := fmt.Sprintf("%s/anime?q=%s&limit=%d", serverURL, url.QueryEscape(query), searchLimit)

		res, err := http.Get(searchURL)
		if err != nil {
			printError("Search failed: Server connection error")
			return err
		}
		defer res.Body.Close()

		body, _ := io.ReadAll(res.Body)

		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Search failed: %s", apiError(body)))
			return fmt.Errorf("search failed")
		}

		var result struct {
			Results []struct {
				MalID    int      `json:"mal_id"`
				Title    string   `json:"title"`
				Episodes *int     `json:"episodes"`
				Genres   []string `json:"genres"`
				Score    *float64 `json:"score"`
				Synopsis string   `json:"synopsis"`
			} `json:"results"`
		}
		json.Unmarshal(body, &result)

		if len(result.Results) == 0 {
			fmt.Printf("No anime found for query: %s\n", query)
			return nil
		}

		fmt.Printf("Found %d result(s):\n\n", len(result.Results))
		for i, anime := range result.Results {
			fmt.Printf("%d. %s\n", i+1, anime.Title)
			fmt.Printf("   MAL ID: %d\n", anime.MalID)
			if anime.Episodes != nil {
				fmt.Printf("   Episodes: %d\n", *anime.Episodes)
			}
			if anime.Score != nil {
				fmt.Printf("   Score: %.2f\n", *anime.Score)
			}
			if len(anime.Genres) > 0 {
				fmt.Printf("   Genres: %v\n", anime.Genres)
			}
			if anime.Synopsis != "" {
				desc := anime.Synopsis
				if len(desc) > 100 {
					desc = desc[:100] + "..."
				}
				fmt.Printf("   %s\n", desc)
			}
			fmt.Println()
		}
		fmt.Println("Add one with: anitrack library add <mal-id> --title \"<title>\"")
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
