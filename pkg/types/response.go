package types

// Envelope is the JSON body of every API response. List endpoints also fill
// Count and, when paginated, Total/Pages/CurrentPage.
type Envelope struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Code        string `json:"code,omitempty"`
	Data        any    `json:"data,omitempty"`
	Count       *int   `json:"count,omitempty"`
	Total       *int64 `json:"total,omitempty"`
	Pages       *int   `json:"pages,omitempty"`
	CurrentPage *int   `json:"currentPage,omitempty"`
}
