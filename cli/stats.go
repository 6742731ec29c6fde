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

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your watch-time statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodGet, "/users/stats", nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to load stats: %s", apiError(body)))
			return fmt.Errorf("stats failed")
		}

		var stats struct {
			TodayMinutes    int `json:"today_minutes"`
			MonthMinutes    int `json:"month_minutes"`
			YearMinutes     int `json:"year_minutes"`
			LifetimeMinutes int `json:"lifetime_minutes"`
		}
		json.Unmarshal(body, &stats)

		fmt.Println("Watch time:")
		fmt.Printf("  Today:    %s\n", formatMinutes(stats.TodayMinutes))
		fmt.Printf("  Month:    %s\n", formatMinutes(stats.MonthMinutes))
		fmt.Printf("  Year:     %s\n", formatMinutes(stats.YearMinutes))
		fmt.Printf("  Lifetime: %s\n", formatMinutes(stats.LifetimeMinutes))
		return nil
	},
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View and correct your watch history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watch history records",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodGet, "/users/history", nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to load history: %s", apiError(body)))
			return fmt.Errorf("history list failed")
		}

		var result struct {
			History []struct {
				ID            string    `json:"id"`
				AnimeTitle    string    `json:"anime_title"`
				EpisodesDelta int       `json:"episodes_delta"`
				Timestamp     time.Time `json:"timestamp"`
			} `json:"history"`
		}
		json.Unmarshal(body, &result)

		if len(result.History) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		fmt.Printf("History (%d records):\n\n", len(result.History))
		for _, h := range result.History {
			sign := ""
			if h.EpisodesDelta > 0 {
				sign = "+"
			}
			fmt.Printf("%s  %s%d ep  %s\n", h.Timestamp.Format("2006-01-02 15:04"), sign, h.EpisodesDelta, h.AnimeTitle)
			fmt.Printf("  ID: %s\n", h.ID)
		}
		return nil
	},
}

var historyEditCmd = &cobra.Command{
	Use:   "edit [history-id] [episodes-delta]",
	Short: "Correct a history record's episode delta",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("episodes-delta must be a number")
		}

		payload := map[string]interface{}{"episodes_delta": delta}
		res, body, err := authedRequest(http.MethodPut, "/users/history/"+url.PathEscape(args[0]), payload)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to edit history: %s", apiError(body)))
			return fmt.Errorf("history edit failed")
		}
		printSuccess("History record updated")
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [history-id]",
	Short: "Delete a history record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodDelete, "/users/history/"+url.PathEscape(args[0]), nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to delete history: %s", apiError(body)))
			return fmt.Errorf("history delete failed")
		}
		printSuccess("History record deleted")
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyEditCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
}
