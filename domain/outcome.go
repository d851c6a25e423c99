package domain

import "time"

// State is a step of the delivery state machine.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateResolving State = "resolving"
	StateMatching  State = "matching"
	StateUpdating  State = "updating"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Outcome summarises one handled delivery.
type Outcome struct {
	State      State     `json:"state"`
	Stage      State     `json:"stage"`
	ProductID  ProductID `json:"product_id,omitempty"`
	OpenDeals  int       `json:"open_deals"`
	LineItems  int       `json:"line_items"`
	Matched    int       `json:"matched"`
	Updated    int       `json:"updated"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	Ignored    int       `json:"ignored_events,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Delivery is the ledger record of a completed webhook delivery.
type Delivery struct {
	Key         string    `json:"key"`
	ProductID   ProductID `json:"product_id"`
	Updated     int       `json:"updated"`
	CompletedAt time.Time `json:"completed_at"`
}

// Open deal criteria used by the deal search.
var (
	ClosedDealStages = []string{"closedwon", "closedlost"}
)

// DealSearch is one page request of the open deal search.
type DealSearch struct {
	ExcludedStages []string
	MinLineItems   int
	Limit          int
	After          string
}

// DealPage is one page of deal search results.
type DealPage struct {
	IDs  []DealID
	Next string
}
