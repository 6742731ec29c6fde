package transfer

import (
	"context"

	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/utils"
)

// importBatch turns parsed rows into one atomic write batch. Rows whose
// catalog id is already in the library are skipped, and so is every
// repeat of an id within the same file (first occurrence wins).
func importBatch(ctx context.Context, st store.Store, userID string,
	existing []models.WatchlistEntry, rows []importRow) (models.ImportReport, error) {

	known := make(map[int]struct{}, len(existing))
	for _, e := range existing {
		known[e.AnimeID] = struct{}{}
	}

	var report models.ImportReport
	var batch []store.Op
	for _, row := range rows {
		if _, dup := known[row.AnimeID]; dup {
			report.Skipped++
			continue
		}
		known[row.AnimeID] = struct{}{}

		entryID, err := utils.GenerateID(16)
		if err != nil {
			return models.ImportReport{}, err
		}
		entry := &models.WatchlistEntry{
			ID:              entryID,
			UserID:          userID,
			AnimeID:         row.AnimeID,
			Title:           row.Title,
			ImageURL:        row.ImageURL,
			TotalEpisodes:   row.TotalEpisodes,
			WatchedEpisodes: row.WatchedEpisodes,
			Genres:          row.Genres,
			Score:           row.Score,
			Synopsis:        row.Synopsis,
			Favorite:        row.Favorite,
		}
		batch = append(batch, store.UpsertEntry(entry))

		if row.WatchedEpisodes > 0 {
			historyID, err := utils.GenerateID(16)
			if err != nil {
				return models.ImportReport{}, err
			}
			batch = append(batch, store.InsertHistory(&models.HistoryRecord{
				ID:            historyID,
				UserID:        userID,
				AnimeID:       row.AnimeID,
				AnimeTitle:    row.Title,
				EpisodesDelta: row.WatchedEpisodes,
			}))
		}
		report.Imported++
	}

	if len(batch) == 0 {
		return report, nil
	}
	if err := st.Apply(ctx, userID, batch); err != nil {
		return models.ImportReport{}, err
	}
	return report, nil
}
