package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProductID identifies a CRM product. HubSpot sends it as a JSON number,
// manual deliveries tend to use strings; both decode to the same value.
type ProductID string

func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("objectId must be a string or number: %w", err)
	}
	*p = ProductID(n.String())
	return nil
}

// ProductChangeEvent is one HubSpot "product.propertyChange" webhook record.
type ProductChangeEvent struct {
	EventID          int64     `json:"eventId"`
	SubscriptionID   int64     `json:"subscriptionId"`
	PortalID         int64     `json:"portalId"`
	AppID            int64     `json:"appId"`
	OccurredAtMillis int64     `json:"occurredAt"`
	SubscriptionType string    `json:"subscriptionType"`
	AttemptNumber    int       `json:"attemptNumber"`
	ObjectID         ProductID `json:"objectId"`
	PropertyName     string    `json:"propertyName"`
	PropertyValue    string    `json:"propertyValue"`
	ChangeSource     string    `json:"changeSource"`
	SourceID         string    `json:"sourceId"`
}

// OccurredAt converts the millisecond epoch timestamp.
func (e ProductChangeEvent) OccurredAt() time.Time {
	if e.OccurredAtMillis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.OccurredAtMillis).UTC()
}

// DeliveryKey identifies the event across redeliveries. Empty when HubSpot ids are absent.
func (e ProductChangeEvent) DeliveryKey() string {
	if e.EventID == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", e.PortalID, e.EventID)
}

// ParseDelivery decodes a webhook body and validates the first record.
//
// A delivery may carry several records but only the first one is processed.
// The remaining count is returned so callers can log what was ignored.
func ParseDelivery(body []byte) (ProductChangeEvent, int, error) {
	var events []ProductChangeEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return ProductChangeEvent{}, 0, WrapError(ErrCodeInvalidPayload, "webhook body is not an event array", err)
	}
	if len(events) == 0 {
		return ProductChangeEvent{}, 0, ErrEmptyDelivery
	}

	first := events[0]
	if first.ObjectID == "" {
		return ProductChangeEvent{}, 0, ErrMissingProductID
	}
	if first.PropertyValue == "" {
		return ProductChangeEvent{}, 0, ErrMissingPropertyValue
	}
	return first, len(events) - 1, nil
}
