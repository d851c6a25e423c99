package repository

import (
	"context"

	"github.com/fastygo/productsync/domain"
)

type DealRepository interface {
	SearchDeals(ctx context.Context, search domain.DealSearch) (domain.DealPage, error)
	LineItemIDs(ctx context.Context, dealID domain.DealID) ([]domain.LineItemID, error)
}
