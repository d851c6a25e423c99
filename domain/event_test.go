package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelivery(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantErr     error
		wantProduct ProductID
		wantIgnored int
	}{
		{name: "not json", body: `{`},
		{name: "object instead of array", body: `{"objectId":"55"}`},
		{name: "empty array", body: `[]`, wantErr: ErrEmptyDelivery},
		{name: "empty object id", body: `[{"objectId":"","propertyValue":"new desc"}]`, wantErr: ErrMissingProductID},
		{name: "blank object id", body: `[{"objectId":"  ","propertyValue":"new desc"}]`, wantErr: ErrMissingProductID},
		{name: "null object id", body: `[{"objectId":null,"propertyValue":"new desc"}]`, wantErr: ErrMissingProductID},
		{name: "missing value", body: `[{"objectId":"55"}]`, wantErr: ErrMissingPropertyValue},
		{name: "string id", body: `[{"objectId":"55","propertyValue":"Updated"}]`, wantProduct: "55"},
		{name: "numeric id", body: `[{"objectId":1234567890123,"propertyValue":"Updated"}]`, wantProduct: "1234567890123"},
		{
			name:        "only first record counts",
			body:        `[{"objectId":"55","propertyValue":"a"},{"objectId":"","propertyValue":""},{"objectId":"9"}]`,
			wantProduct: "55",
			wantIgnored: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, ignored, err := ParseDelivery([]byte(tc.body))
			if tc.wantProduct == "" {
				require.Error(t, err)
				assert.True(t, IsDomainError(err, ErrCodeInvalidPayload))
				if tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantProduct, event.ObjectID)
			assert.Equal(t, tc.wantIgnored, ignored)
		})
	}
}

func TestProductChangeEvent_Metadata(t *testing.T) {
	event, _, err := ParseDelivery([]byte(`[{
		"eventId": 3816279340,
		"subscriptionId": 25,
		"portalId": 33,
		"appId": 1160452,
		"occurredAt": 1567689104280,
		"subscriptionType": "product.propertyChange",
		"attemptNumber": 1,
		"objectId": 55,
		"propertyName": "description",
		"propertyValue": "Updated",
		"changeSource": "CRM_UI"
	}]`))
	require.NoError(t, err)

	assert.Equal(t, "33:3816279340", event.DeliveryKey())
	assert.Equal(t, time.UnixMilli(1567689104280).UTC(), event.OccurredAt())
	assert.Equal(t, "description", event.PropertyName)

	assert.Empty(t, ProductChangeEvent{}.DeliveryKey())
	assert.True(t, ProductChangeEvent{}.OccurredAt().IsZero())
}

func TestErrors(t *testing.T) {
	cause := assert.AnError
	err := StageError(StateMatching, "match line items to product", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDomainError(err, ErrCodeUpstream))
	assert.False(t, IsDomainError(err, ErrCodeInvalidPayload))
	assert.Equal(t, StateMatching, FailedStage(err))
	assert.Contains(t, err.Error(), "stage matching")
	assert.Empty(t, FailedStage(cause))
}
