package models

// Anime is a catalog search result from the external anime database.
type Anime struct {
	MalID    int      `json:"mal_id"`
	Title    string   `json:"title"`
	ImageURL string   `json:"image_url"`
	// Episodes is nil when the catalog does not know the total yet
	// (e.g. currently airing shows).
	Episodes *int     `json:"episodes"`
	Genres   []string `json:"genres"`
	Score    *float64 `json:"score,omitempty"`
	Synopsis string   `json:"synopsis,omitempty"`
}

type SearchAnimeRequest struct {
	Query  string `form:"q" binding:"required"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=25"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

type RecommendationRequest struct {
	Titles []string `json:"titles"`
}

type RecommendationResponse struct {
	Text string `json:"text"`
}
