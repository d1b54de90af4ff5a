package models

// SearchResult is the normalized form of a hit from the backend's semantic
// search. Backend responses vary in shape; the search client maps them all
// into this type at the boundary so scoring and linking never see backend
// schema drift.
type SearchResult struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
	Kind  string  `json:"kind"`
}
