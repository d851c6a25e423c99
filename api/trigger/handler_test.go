package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/pkg/hubspot"
	hubspotrepo "github.com/fastygo/productsync/repository/hubspot"
	"github.com/fastygo/productsync/repository/memory"
	"github.com/fastygo/productsync/usecase/propagation"
)

// crmServer emulates the HubSpot endpoints the pipeline calls.
type crmServer struct {
	mu        sync.Mutex
	deals     []string
	lineItems map[string][]string
	products  map[string]string
	updated   map[string]string
	failWith  int
}

func (s *crmServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != 0 {
		w.WriteHeader(s.failWith)
		_, _ = w.Write([]byte(`{"status":"error","message":"boom","category":"INTERNAL_ERROR"}`))
		return
	}

	switch {
	case r.URL.Path == "/crm/v3/objects/deals/search":
		results := make([]map[string]string, 0, len(s.deals))
		for _, id := range s.deals {
			results = append(results, map[string]string{"id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})

	case r.URL.Path == "/crm/v3/objects/line_items/batch/read":
		var req hubspot.BatchReadRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		results := make([]map[string]any, 0, len(req.Inputs))
		for _, in := range req.Inputs {
			results = append(results, map[string]any{
				"id":         in.ID,
				"properties": map[string]string{"hs_product_id": s.products[in.ID]},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "COMPLETE", "results": results})

	case r.URL.Path == "/crm/v3/objects/line_items/batch/update":
		var req hubspot.BatchUpdateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, in := range req.Inputs {
			s.updated[in.ID] = in.Properties["description"]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "COMPLETE"})

	default:
		dealID := r.URL.Path[len("/crm/v3/objects/deals/"):]
		refs := make([]map[string]string, 0)
		for _, id := range s.lineItems[dealID] {
			refs = append(refs, map[string]string{"id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           dealID,
			"associations": map[string]any{"line items": map[string]any{"results": refs}},
		})
	}
}

func newHandler(t *testing.T, crm *crmServer) *Handler {
	t.Helper()
	server := httptest.NewServer(crm)
	t.Cleanup(server.Close)

	client := hubspot.NewClientWithOptions(hubspot.ClientOptions{
		BaseURL:       server.URL,
		TokenProvider: hubspot.StaticToken("pat-test"),
		RetryMax:      1,
		RetryWaitMin:  time.Millisecond,
		RetryWaitMax:  time.Millisecond,
	})
	ledger, err := memory.NewDeliveryLedger(10, time.Hour)
	require.NoError(t, err)

	pipeline := propagation.New(
		hubspotrepo.NewDealRepository(client),
		hubspotrepo.NewLineItemRepository(client),
		ledger,
		nil,
		propagation.Config{},
	)
	return NewHandler(pipeline, 5*time.Second, nil)
}

func TestHandle_Scenarios(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		crm         *crmServer
		wantStatus  int
		wantUpdated map[string]string
	}{
		{
			name:       "empty delivery",
			body:       `[]`,
			crm:        &crmServer{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty object id",
			body:       `[{"objectId":"","propertyValue":"new desc"}]`,
			crm:        &crmServer{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "no open deals",
			body:        `[{"objectId":"55","propertyValue":"Updated"}]`,
			crm:         &crmServer{},
			wantStatus:  http.StatusOK,
			wantUpdated: map[string]string{},
		},
		{
			name: "one matching line item",
			body: `[{"objectId":55,"propertyValue":"Updated"}]`,
			crm: &crmServer{
				deals:     []string{"900"},
				lineItems: map[string][]string{"900": {"1", "2"}},
				products:  map[string]string{"1": "55", "2": "77"},
			},
			wantStatus:  http.StatusOK,
			wantUpdated: map[string]string{"1": "Updated"},
		},
		{
			name:        "upstream failure",
			body:        `[{"objectId":"55","propertyValue":"Updated"}]`,
			crm:         &crmServer{failWith: http.StatusInternalServerError},
			wantStatus:  http.StatusInternalServerError,
			wantUpdated: map[string]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.crm.updated = map[string]string{}
			resp := newHandler(t, tc.crm).Handle(context.Background(), Request{Body: tc.body})

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			if tc.wantUpdated != nil {
				assert.Equal(t, tc.wantUpdated, tc.crm.updated)
			}
		})
	}
}

func TestHandle_UpstreamFailureCarriesStage(t *testing.T) {
	crm := &crmServer{failWith: http.StatusBadGateway, updated: map[string]string{}}
	resp := newHandler(t, crm).Handle(context.Background(), Request{Body: `[{"objectId":"55","propertyValue":"x"}]`})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, domain.StateFailed, resp.Outcome.State)
	assert.Equal(t, domain.StateResolving, domain.FailedStage(resp.Err))
}

type stubPipeline struct {
	err      error
	deadline bool
}

func (s *stubPipeline) HandleDelivery(ctx context.Context, _ []byte) (domain.Outcome, error) {
	_, s.deadline = ctx.Deadline()
	return domain.Outcome{}, s.err
}

func TestHandle_AppliesDeadline(t *testing.T) {
	stub := &stubPipeline{}
	resp := NewHandler(stub, 0, nil).Handle(context.Background(), Request{Body: "[]"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, stub.deadline)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusBadRequest, StatusCode(domain.ErrEmptyDelivery))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(domain.ErrCredentialUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("anything else")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(context.DeadlineExceeded))
}
