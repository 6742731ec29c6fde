package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	addTitle   string
	addTotal   int
	addWatched int
)

type libraryEntry struct {
	ID              string    `json:"id"`
	AnimeID         int       `json:"anime_id"`
	Title           string    `json:"title"`
	TotalEpisodes   *int      `json:"total_episodes"`
	WatchedEpisodes int       `json:"watched_episodes"`
	Favorite        bool      `json:"favorite"`
	Pending         bool      `json:"pending"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func formatProgress(e libraryEntry) string {
	total := "?"
	if e.TotalEpisodes != nil {
		total = strconv.Itoa(*e.TotalEpisodes)
	}
	progress := fmt.Sprintf("%d/%s", e.WatchedEpisodes, total)
	if e.Pending {
		progress += " (syncing...)"
	}
	return progress
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage your watchlist",
	Long:  `List, add, update, and remove anime in your personal library.`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your library",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodGet, "/users/library", nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to load library: %s", apiError(body)))
			return fmt.Errorf("library list failed")
		}

		var result struct {
			Entries    []libraryEntry `json:"entries"`
			PendingOps int            `json:"pending_ops"`
		}
		json.Unmarshal(body, &result)

		if len(result.Entries) == 0 {
			fmt.Println("Your library is empty.")
			fmt.Println("Try: anitrack search \"anime title\"")
			return nil
		}

		fmt.Printf("Library (%d entries):\n\n", len(result.Entries))
		for i, e := range result.Entries {
			fav := ""
			if e.Favorite {
				fav = " ★"
			}
			fmt.Printf("%d. %s%s\n", i+1, e.Title, fav)
			fmt.Printf("   ID: %s\n", e.ID)
			fmt.Printf("   Progress: %s\n", formatProgress(e))
		}
		if result.PendingOps > 0 {
			fmt.Printf("\n%d change(s) still syncing\n", result.PendingOps)
		}
		return nil
	},
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [anime-id]",
	Short: "Add an anime to your library",
	Long:  `Add a catalog title by its MAL id. Use 'anitrack search' to find ids.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		animeID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("anime id must be a number")
		}
		if addTitle == "" {
			return fmt.Errorf("title is required (--title)")
		}

		payload := map[string]interface{}{
			"anime_id":        animeID,
			"title":           addTitle,
			"initial_watched": addWatched,
		}
		if addTotal > 0 {
			payload["total_episodes"] = addTotal
		}

		res, body, err := authedRequest(http.MethodPost, "/users/library", payload)
		if err != nil {
			return err
		}
		if res.StatusCode == http.StatusConflict {
			printError("Already in your library")
			return fmt.Errorf("duplicate entry")
		}
		if res.StatusCode != http.StatusCreated {
			printError(fmt.Sprintf("Failed to add: %s", apiError(body)))
			return fmt.Errorf("library add failed")
		}

		var entry libraryEntry
		json.Unmarshal(body, &entry)
		printSuccess(fmt.Sprintf("Added %s (%s)", entry.Title, formatProgress(entry)))
		return nil
	},
}

var libraryUpdateCmd = &cobra.Command{
	Use:   "update [entry-id] [watched-episodes]",
	Short: "Set the watched-episode count",
	Long:  `Update progress for an entry. Rapid updates are coalesced server-side into one durable write.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		watched, err := strconv.Atoi(args[1])
		if err != nil || watched < 0 {
			return fmt.Errorf("watched-episodes must be a non-negative number")
		}

		payload := map[string]interface{}{
			"entry_id":         args[0],
			"watched_episodes": watched,
		}
		res, body, err := authedRequest(http.MethodPut, "/users/library/episodes", payload)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to update: %s", apiError(body)))
			return fmt.Errorf("library update failed")
		}

		var result struct {
			Entry      libraryEntry `json:"entry"`
			PendingOps int          `json:"pending_ops"`
		}
		json.Unmarshal(body, &result)
		printSuccess(fmt.Sprintf("%s → %s", result.Entry.Title, formatProgress(result.Entry)))
		return nil
	},
}

var libraryFavoriteCmd = &cobra.Command{
	Use:   "favorite [entry-id] [on|off]",
	Short: "Toggle the favorite flag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var favorite bool
		switch args[1] {
		case "on":
			favorite = true
		case "off":
			favorite = false
		default:
			return fmt.Errorf("second argument must be 'on' or 'off'")
		}

		payload := map[string]interface{}{
			"entry_id": args[0],
			"favorite": favorite,
		}
		res, body, err := authedRequest(http.MethodPut, "/users/library/favorite", payload)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to update favorite: %s", apiError(body)))
			return fmt.Errorf("favorite update failed")
		}
		printSuccess("Favorite updated")
		return nil
	},
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [entry-id]",
	Short: "Remove an entry from your library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodDelete, "/users/library/"+url.PathEscape(args[0]), nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to remove: %s", apiError(body)))
			return fmt.Errorf("library remove failed")
		}
		printSuccess("Removed from library")
		return nil
	},
}

func init() {
	libraryAddCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Anime title")
	libraryAddCmd.Flags().IntVar(&addTotal, "total", 0, "Total episode count (0 if unknown)")
	libraryAddCmd.Flags().IntVar(&addWatched, "watched", 0, "Episodes already watched")

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryUpdateCmd)
	libraryCmd.AddCommand(libraryFavoriteCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	rootCmd.AddCommand(libraryCmd)
}
