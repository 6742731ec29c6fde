package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nmhoang2304/AniTrack-Group07/cli/config"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the realtime sync feed",
	Long:  `Connect to the server's live feed and print library snapshots and sync errors as they happen. Press Ctrl+C to exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		feedURL, err := config.GetFeedURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: anitrack init")
			return err
		}
		token, err := config.GetAuthToken()
		if err != nil {
			printError("Not logged in")
			fmt.Println("Run: anitrack auth login --username <name>")
			return err
		}

		conn, _, err := websocket.DefaultDialer.Dial(feedURL+"?token="+token, nil)
		if err != nil {
			printError("Failed to connect to feed")
			return err
		}
		defer conn.Close()

		fmt.Println("Watching the sync feed... (Press Ctrl+C to exit)")
		fmt.Println()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		events := make(chan []byte, 16)
		readErr := make(chan error, 1)
		go func() {
			for {
				_, message, err := conn.ReadMessage()
				if err != nil {
					readErr <- err
					return
				}
				events <- message
			}
		}()

		for {
			select {
			case <-sigChan:
				fmt.Println("\nFeed closed")
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				time.Sleep(100 * time.Millisecond)
				return nil
			case err := <-readErr:
				printError("Connection lost")
				return err
			case message := <-events:
				printFeedEvent(message)
			}
		}
	},
}

func printFeedEvent(message []byte) {
	var event struct {
		Type      string `json:"type"`
		Content   string `json:"content"`
		Watchlist []struct {
			Title           string `json:"title"`
			WatchedEpisodes int    `json:"watched_episodes"`
			Pending         bool   `json:"pending"`
		} `json:"watchlist"`
		PendingOps int `json:"pending_ops"`
		Error      *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		return
	}

	stamp := event.Timestamp.Format("15:04:05")
	switch event.Type {
	case "welcome":
		fmt.Printf("[%s] %s\n", stamp, event.Content)
	case "snapshot":
		fmt.Printf("[%s] snapshot: %d entries, %d pending\n", stamp, len(event.Watchlist), event.PendingOps)
		for _, e := range event.Watchlist {
			marker := " "
			if e.Pending {
				marker = "~"
			}
			fmt.Printf("  %s %s (%d watched)\n", marker, e.Title, e.WatchedEpisodes)
		}
	case "history":
		fmt.Printf("[%s] history updated\n", stamp)
	case "sync_error":
		if event.Error != nil {
			fmt.Printf("[%s] sync error [%s]: %s\n", stamp, event.Error.Code, event.Error.Message)
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
