package journal

import (
	"time"

	"github.com/fastygo/productsync/domain"
)

// Entry is one completed delivery as stored on disk.
type Entry struct {
	Key        string           `json:"key"`
	ProductID  domain.ProductID `json:"product_id"`
	Updated    int              `json:"updated"`
	RecordedAt time.Time        `json:"recorded_at"`
}

func entryFromDelivery(d domain.Delivery) Entry {
	recorded := d.CompletedAt
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	return Entry{
		Key:        d.Key,
		ProductID:  d.ProductID,
		Updated:    d.Updated,
		RecordedAt: recorded,
	}
}
