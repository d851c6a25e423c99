package hubspot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/pkg/hubspot"
	"github.com/fastygo/productsync/repository"
)

const (
	propertyDealStage      = "dealstage"
	propertyLineItemCount  = "hs_num_of_associated_line_items"
	propertyObjectID       = "hs_object_id"
	associationLineItems   = "line_items"
	associationLineItemKey = "line items"
)

type dealRepository struct {
	client *hubspot.Client
}

// NewDealRepository creates a HubSpot-backed deal repository.
func NewDealRepository(client *hubspot.Client) repository.DealRepository {
	return &dealRepository{client: client}
}

func (r *dealRepository) SearchDeals(ctx context.Context, search domain.DealSearch) (domain.DealPage, error) {
	resp, err := r.client.SearchObjects(ctx, hubspot.ObjectDeals, buildDealSearch(search))
	if err != nil {
		return domain.DealPage{}, err
	}

	page := domain.DealPage{
		IDs:  make([]domain.DealID, 0, len(resp.Results)),
		Next: resp.NextAfter(),
	}
	for _, obj := range resp.Results {
		page.IDs = append(page.IDs, domain.DealID(obj.ID))
	}
	return page, nil
}

// LineItemIDs reads the deal with its line item associations and follows the
// association cursor when the embedded list is truncated.
func (r *dealRepository) LineItemIDs(ctx context.Context, dealID domain.DealID) ([]domain.LineItemID, error) {
	obj, err := r.client.GetObject(ctx, hubspot.ObjectDeals, string(dealID), hubspot.GetObjectOptions{
		Associations: []string{associationLineItems},
	})
	if err != nil {
		return nil, err
	}

	list := obj.Associations[associationLineItemKey]
	ids := appendLineItems(make([]domain.LineItemID, 0, len(list.Results)), list.Results)

	for after := list.NextAfter(); after != ""; {
		page, err := r.client.ListAssociations(ctx, hubspot.ObjectDeals, string(dealID), associationLineItems, after)
		if err != nil {
			return nil, err
		}
		ids = appendLineItems(ids, page.Results)

		next := page.NextAfter()
		if next == after {
			return nil, fmt.Errorf("line item associations of deal %s repeated cursor %q", dealID, next)
		}
		after = next
	}
	return ids, nil
}

func appendLineItems(ids []domain.LineItemID, refs []hubspot.AssociationRef) []domain.LineItemID {
	for _, ref := range refs {
		ids = append(ids, domain.LineItemID(ref.ID))
	}
	return ids
}

func buildDealSearch(search domain.DealSearch) hubspot.SearchRequest {
	filters := make([]hubspot.Filter, 0, 2)
	if len(search.ExcludedStages) > 0 {
		filters = append(filters, hubspot.Filter{
			PropertyName: propertyDealStage,
			Operator:     hubspot.OperatorNotIn,
			Values:       search.ExcludedStages,
		})
	}
	filters = append(filters, hubspot.Filter{
		PropertyName: propertyLineItemCount,
		Operator:     hubspot.OperatorGT,
		Value:        strconv.Itoa(search.MinLineItems),
	})

	return hubspot.SearchRequest{
		FilterGroups: []hubspot.FilterGroup{{Filters: filters}},
		Properties:   []string{propertyObjectID},
		Limit:        search.Limit,
		After:        search.After,
	}
}
