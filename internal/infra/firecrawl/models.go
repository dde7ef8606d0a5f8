package firecrawl

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type searchResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Data    []searchItem `json:"data"`
}

type searchItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}
