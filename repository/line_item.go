package repository

import (
	"context"

	"github.com/fastygo/productsync/domain"
)

// LineItemRepository reads and writes line items in batches. Callers keep
// each batch within the CRM's per-call input limit.
type LineItemRepository interface {
	ProductIDs(ctx context.Context, ids []domain.LineItemID) (map[domain.LineItemID]domain.ProductID, error)
	UpdateDescriptions(ctx context.Context, ids []domain.LineItemID, description string) error
}
