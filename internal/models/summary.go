package models

// SummaryOverview holds collection-wide totals
type SummaryOverview struct {
	TotalPayments     int64   `json:"totalPayments"`
	TotalAmount       float64 `json:"totalAmount"`
	AverageAmount     float64 `json:"averageAmount"`
	CompletedPayments int64   `json:"completedPayments"`
	PendingPayments   int64   `json:"pendingPayments"`
}

// Breakdown is the count and total amount of one method or currency.
// Key is serialized as _id for compatibility with existing dashboards.
type Breakdown struct {
	Key         string  `json:"_id"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

// Summary is the read-only aggregate over every payment
type Summary struct {
	Overview   SummaryOverview `json:"overview"`
	ByMethod   []Breakdown     `json:"byMethod"`
	ByCurrency []Breakdown     `json:"byCurrency"`
}

// EmptySummary is the summary of an empty collection
func EmptySummary() *Summary {
	return &Summary{
		ByMethod:   []Breakdown{},
		ByCurrency: []Breakdown{},
	}
}

// Pagination describes where a page sits in the filtered result set
type Pagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalPayments int64 `json:"totalPayments"`
	HasNext       bool  `json:"hasNext"`
	HasPrev       bool  `json:"hasPrev"`
}

// NewPagination computes page metadata for a page of size limit
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalPayments: total,
		HasNext:       page < totalPages,
		HasPrev:       page > 1,
	}
}
