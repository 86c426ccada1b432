package models

// ListingQuery is the raw pagination and search input of a listing request.
type ListingQuery struct {
	RawPage   string
	RawSearch string
}

// ListingPage is the view model produced for one listing request.
type ListingPage struct {
	Items       []Subject `json:"items"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	SearchText  string    `json:"search_text"`
}
