package transfer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// utf8BOM prefixes exports so spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{
	"anime_id", "title", "image_url", "total_episodes",
	"watched_episodes", "genres", "score", "synopsis",
	"favorite", "updated_at",
}

// columnSynonyms maps every accepted header spelling to its logical
// field. Matching is case-insensitive and resolved once per file, not
// per row.
var columnSynonyms = map[string]string{
	"anime_id": "anime_id", "mal_id": "anime_id", "id": "anime_id", "malid": "anime_id",
	"title": "title", "name": "title", "anime_title": "title",
	"image_url": "image_url", "image": "image_url", "cover": "image_url",
	"total_episodes": "total_episodes", "total": "total_episodes", "episodes": "total_episodes",
	"watched_episodes": "watched_episodes", "watched": "watched_episodes",
	"progress": "watched_episodes", "episodes_watched": "watched_episodes",
	"genres": "genres", "genre": "genres",
	"score": "score", "rating": "score",
	"synopsis": "synopsis", "description": "synopsis",
	"favorite": "favorite", "favourite": "favorite", "fav": "favorite",
}

// WriteCSV serializes the library to CSV: BOM, header, one row per
// entry.
func WriteCSV(w io.Writer, entries []models.WatchlistEntry) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range entries {
		total := ""
		if e.TotalEpisodes != nil {
			total = strconv.Itoa(*e.TotalEpisodes)
		}
		score := ""
		if e.Score != nil {
			score = strconv.FormatFloat(*e.Score, 'f', -1, 64)
		}
		row := []string{
			strconv.Itoa(e.AnimeID),
			e.Title,
			e.ImageURL,
			total,
			strconv.Itoa(e.WatchedEpisodes),
			strings.Join(e.Genres, "; "),
			score,
			e.Synopsis,
			strconv.FormatBool(e.Favorite),
			e.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// importRow is one parsed, validated CSV row.
type importRow struct {
	AnimeID         int
	Title           string
	ImageURL        string
	TotalEpisodes   *int
	WatchedEpisodes int
	Genres          []string
	Score           *float64
	Synopsis        string
	Favorite        bool
}

// ParseCSV reads a CSV import file. The header row is resolved against
// the synonym table once; rows missing the catalog id or title count as
// skipped. rowCap bounds how many data rows are read at all.
func ParseCSV(r io.Reader, rowCap int) (rows []importRow, skipped int, err error) {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("import file is empty")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header row: %w", err)
	}

	// field -> column index, first matching column wins.
	cols := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if field, ok := columnSynonyms[key]; ok {
			if _, seen := cols[field]; !seen {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["anime_id"]; !ok {
		return nil, 0, fmt.Errorf("no recognizable catalog-id column in header")
	}
	if _, ok := cols["title"]; !ok {
		return nil, 0, fmt.Errorf("no recognizable title column in header")
	}

	read := 0
	for {
		if read >= rowCap {
			break
		}
		record, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			skipped++
			continue
		}
		read++

		row, ok := parseRow(record, cols)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

func parseRow(record []string, cols map[string]int) (importRow, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	animeID, err := strconv.Atoi(field("anime_id"))
	if err != nil || animeID <= 0 {
		return importRow{}, false
	}
	title := field("title")
	if title == "" {
		return importRow{}, false
	}

	row := importRow{
		AnimeID:  animeID,
		Title:    title,
		ImageURL: field("image_url"),
		Synopsis: field("synopsis"),
	}
	if v, err := strconv.Atoi(field("watched_episodes")); err == nil && v > 0 {
		row.WatchedEpisodes = v
	}
	if v, err := strconv.Atoi(field("total_episodes")); err == nil && v > 0 {
		row.TotalEpisodes = &v
	}
	if v, err := strconv.ParseFloat(field("score"), 64); err == nil {
		row.Score = &v
	}
	if v, err := strconv.ParseBool(field("favorite")); err == nil {
		row.Favorite = v
	}
	if g := field("genres"); g != "" {
		for _, part := range strings.Split(g, ";") {
			if part = strings.TrimSpace(part); part != "" {
				row.Genres = append(row.Genres, part)
			}
		}
	}
	if row.TotalEpisodes != nil && row.WatchedEpisodes > *row.TotalEpisodes {
		row.WatchedEpisodes = *row.TotalEpisodes
	}
	return row, true
}

// stripBOM drops a leading UTF-8 byte-order marker if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, _ := io.ReadFull(r, buf)
	if n == 3 && buf[0] == utf8BOM[0] && buf[1] == utf8BOM[1] && buf[2] == utf8BOM[2] {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
