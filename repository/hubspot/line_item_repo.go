package hubspot

import (
	"context"
	"fmt"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/pkg/hubspot"
	"github.com/fastygo/productsync/repository"
)

const (
	propertyProductID   = "hs_product_id"
	propertyDescription = "description"
)

type lineItemRepository struct {
	client *hubspot.Client
}

// NewLineItemRepository creates a HubSpot-backed line item repository.
func NewLineItemRepository(client *hubspot.Client) repository.LineItemRepository {
	return &lineItemRepository{client: client}
}

func (r *lineItemRepository) ProductIDs(ctx context.Context, ids []domain.LineItemID) (map[domain.LineItemID]domain.ProductID, error) {
	result := make(map[domain.LineItemID]domain.ProductID, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	inputs := make([]hubspot.ObjectRef, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, hubspot.ObjectRef{ID: string(id)})
	}
	resp, err := r.client.BatchRead(ctx, hubspot.ObjectLineItems, hubspot.BatchReadRequest{
		Properties: []string{propertyProductID},
		Inputs:     inputs,
	})
	if err != nil {
		return nil, err
	}

	for _, obj := range resp.Results {
		result[domain.LineItemID(obj.ID)] = domain.ProductID(obj.Properties[propertyProductID])
	}
	return result, nil
}

func (r *lineItemRepository) UpdateDescriptions(ctx context.Context, ids []domain.LineItemID, description string) error {
	if len(ids) == 0 {
		return nil
	}

	inputs := make([]hubspot.BatchUpdateInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, hubspot.BatchUpdateInput{
			ID:         string(id),
			Properties: map[string]string{propertyDescription: description},
		})
	}
	resp, err := r.client.BatchUpdate(ctx, hubspot.ObjectLineItems, hubspot.BatchUpdateRequest{Inputs: inputs})
	if err != nil {
		return err
	}
	if resp.NumErrors > 0 || len(resp.Errors) > 0 {
		first := ""
		if len(resp.Errors) > 0 {
			first = resp.Errors[0].Message
		}
		return fmt.Errorf("batch update reported %d error(s): %s", max(resp.NumErrors, len(resp.Errors)), first)
	}
	return nil
}
