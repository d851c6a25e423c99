package hubspot

// Object types used in CRM v3 paths.
const (
	ObjectDeals     = "deals"
	ObjectLineItems = "line_items"
)

// Search filter operators.
const (
	OperatorGT    = "GT"
	OperatorNotIn = "NOT_IN"
)

// Filter is a single search condition.
type Filter struct {
	PropertyName string   `json:"propertyName"`
	Operator     string   `json:"operator"`
	Value        string   `json:"value,omitempty"`
	Values       []string `json:"values,omitempty"`
}

// FilterGroup ANDs its filters; groups are ORed together.
type FilterGroup struct {
	Filters []Filter `json:"filters"`
}

// SearchRequest is the body of POST /crm/v3/objects/{type}/search.
type SearchRequest struct {
	FilterGroups []FilterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	After        string        `json:"after,omitempty"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Total   int      `json:"total"`
	Results []Object `json:"results"`
	Paging  *Paging  `json:"paging,omitempty"`
}

// NextAfter returns the continuation cursor, or "" on the last page.
func (r *SearchResponse) NextAfter() string {
	if r == nil || r.Paging == nil || r.Paging.Next == nil {
		return ""
	}
	return r.Paging.Next.After
}

// Paging carries the cursor for the next page.
type Paging struct {
	Next *NextPage `json:"next,omitempty"`
}

// NextPage is the cursor of the following page.
type NextPage struct {
	After string `json:"after"`
	Link  string `json:"link,omitempty"`
}

// Object is a CRM record. Property values that are null in the API decode to "".
type Object struct {
	ID           string                     `json:"id"`
	Properties   map[string]string          `json:"properties"`
	Associations map[string]AssociationList `json:"associations,omitempty"`
	CreatedAt    string                     `json:"createdAt,omitempty"`
	UpdatedAt    string                     `json:"updatedAt,omitempty"`
	Archived     bool                       `json:"archived,omitempty"`
}

// AssociationList holds associated record references, keyed by association
// label in Object.Associations (e.g. "line items").
type AssociationList struct {
	Results []AssociationRef `json:"results"`
	Paging  *Paging          `json:"paging,omitempty"`
}

// NextAfter returns the cursor of the next association page, or "" on the last page.
func (l *AssociationList) NextAfter() string {
	if l == nil || l.Paging == nil || l.Paging.Next == nil {
		return ""
	}
	return l.Paging.Next.After
}

// AssociationRef references an associated record.
type AssociationRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// GetObjectOptions selects properties and associations on a single read.
type GetObjectOptions struct {
	Properties   []string
	Associations []string
}

// ObjectRef is a batch input by id.
type ObjectRef struct {
	ID string `json:"id"`
}

// BatchReadRequest is the body of POST /crm/v3/objects/{type}/batch/read.
type BatchReadRequest struct {
	Properties []string    `json:"properties"`
	Inputs     []ObjectRef `json:"inputs"`
}

// BatchUpdateInput is a single record update.
type BatchUpdateInput struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// BatchUpdateRequest is the body of POST /crm/v3/objects/{type}/batch/update.
type BatchUpdateRequest struct {
	Inputs []BatchUpdateInput `json:"inputs"`
}

// BatchResponse is returned by batch endpoints. A 207 response lists per-record errors.
type BatchResponse struct {
	Status    string       `json:"status"`
	Results   []Object     `json:"results"`
	NumErrors int          `json:"numErrors,omitempty"`
	Errors    []BatchError `json:"errors,omitempty"`
}

// BatchError describes records a batch call could not process.
type BatchError struct {
	Status   string              `json:"status"`
	Category string              `json:"category"`
	Message  string              `json:"message"`
	Context  map[string][]string `json:"context,omitempty"`
}
