package main

import (
	"log"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/database"
)

func main() {
	if err := database.InitDatabase("data/anitrack.db"); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.DB.Close()

	_, err := database.DB.Exec(`DELETE FROM users WHERE id = 'user123'`)
	if err != nil {
		log.Printf("Note: Could not delete existing user: %v", err)
	}

	result, err := database.DB.Exec(`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ('user123', 'testuser', 'test@example.com', '$2a$10$dummy', CURRENT_TIMESTAMP)`)
	if err != nil {
		log.Fatalf("Failed to insert user: %v", err)
	}
	rows, _ := result.RowsAffected()
	log.Printf("Inserted %d user(s)", rows)

	_, err = database.DB.Exec(`INSERT OR IGNORE INTO watchlist (id, user_id, anime_id, title, image_url, total_episodes, watched_episodes, genres, score, synopsis, favorite, updated_at) VALUES
		('seed-fmab', 'user123', 5114, 'Fullmetal Alchemist: Brotherhood', '', 64, 12, '["Action","Adventure"]', 9.1, 'Two brothers search for the Philosopher''s Stone.', 1, CURRENT_TIMESTAMP),
		('seed-frieren', 'user123', 52991, 'Sousou no Frieren', '', 28, 0, '["Adventure","Drama","Fantasy"]', 9.3, 'An elven mage outlives her hero party.', 0, CURRENT_TIMESTAMP)`)
	if err != nil {
		log.Fatalf("Failed to insert watchlist entries: %v", err)
	}

	_, err = database.DB.Exec(`INSERT OR IGNORE INTO history (id, user_id, anime_id, anime_title, episodes_delta, timestamp) VALUES
		('seed-hist-1', 'user123', 5114, 'Fullmetal Alchemist: Brotherhood', 12, CURRENT_TIMESTAMP)`)
	if err != nil {
		log.Fatalf("Failed to insert history: %v", err)
	}

	log.Println("Test data inserted successfully")
}
