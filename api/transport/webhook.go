package transport

import (
	"time"

	"github.com/fastygo/productsync/domain"
)

// WebhookResult summarizes a processed delivery for the local server's response body.
type WebhookResult struct {
	State         string    `json:"state"`
	Stage         string    `json:"stage,omitempty"`
	ProductID     string    `json:"product_id,omitempty"`
	OpenDeals     int       `json:"open_deals"`
	LineItems     int       `json:"line_items"`
	Matched       int       `json:"matched"`
	Updated       int       `json:"updated"`
	Duplicate     bool      `json:"duplicate,omitempty"`
	IgnoredEvents int       `json:"ignored_events,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

func NewWebhookResult(outcome domain.Outcome) WebhookResult {
	return WebhookResult{
		State:         string(outcome.State),
		Stage:         string(outcome.Stage),
		ProductID:     string(outcome.ProductID),
		OpenDeals:     outcome.OpenDeals,
		LineItems:     outcome.LineItems,
		Matched:       outcome.Matched,
		Updated:       outcome.Updated,
		Duplicate:     outcome.Duplicate,
		IgnoredEvents: outcome.Ignored,
		FinishedAt:    outcome.FinishedAt,
	}
}
