package search

// Result is a single dispute hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Location   string `json:"location"`
	TicketType string `json:"ticketType"`
	Snippet    string `json:"snippet"`
	Status     string `json:"status"`
	UserID     string `json:"-"`
}

// Query describes a history search. UserID is mandatory: callers only
// ever search their own records.
type Query struct {
	Text       string
	UserID     string
	TicketType string // empty = all categories
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over dispute history.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push dispute records into a search index.
type Indexer interface {
	IndexDispute(d DisputeRecord) error
	DeleteDispute(id string) error
}

// DisputeRecord is the data we index for a dispute.
type DisputeRecord struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	Location        string `json:"location"`
	TicketType      string `json:"ticketType"`
	AdditionalNotes string `json:"additionalNotes"`
	AppealLetter    string `json:"appealLetter"`
	Status          string `json:"status"`
}
