package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/productsync/api/transport"
	"github.com/fastygo/productsync/api/trigger"
	"github.com/fastygo/productsync/domain"
	"github.com/fastygo/productsync/internal/config"
	"github.com/fastygo/productsync/internal/infrastructure/monitor"
	"github.com/fastygo/productsync/internal/middleware"
	"github.com/fastygo/productsync/pkg/httpcontext"
	"github.com/fastygo/productsync/pkg/hubspot"
)

type stubPipeline struct {
	outcome domain.Outcome
	err     error
	body    string
}

func (s *stubPipeline) HandleDelivery(_ context.Context, body []byte) (domain.Outcome, error) {
	s.body = string(body)
	return s.outcome, s.err
}

func decodeEnvelope(t *testing.T, body []byte) (transport.Envelope, map[string]any) {
	t.Helper()
	var env transport.Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	data, _ := env.Data.(map[string]any)
	return env, data
}

func TestWebhookHandler_Receive(t *testing.T) {
	cases := []struct {
		name       string
		pipeline   *stubPipeline
		wantStatus int
		wantCode   string
	}{
		{
			name: "completed",
			pipeline: &stubPipeline{outcome: domain.Outcome{
				State: domain.StateCompleted, Stage: domain.StateUpdating, ProductID: "55", Matched: 1, Updated: 1,
			}},
			wantStatus: fasthttp.StatusOK,
		},
		{
			name:       "invalid payload",
			pipeline:   &stubPipeline{outcome: domain.Outcome{State: domain.StateFailed}, err: domain.ErrEmptyDelivery},
			wantStatus: fasthttp.StatusBadRequest,
			wantCode:   "INVALID_PAYLOAD",
		},
		{
			name: "upstream failure",
			pipeline: &stubPipeline{
				outcome: domain.Outcome{State: domain.StateFailed, Stage: domain.StateMatching},
				err:     domain.StageError(domain.StateMatching, "match line items to product", errors.New("502")),
			},
			wantStatus: fasthttp.StatusInternalServerError,
			wantCode:   "UPSTREAM_FAILURE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewWebhookHandler(
				trigger.NewHandler(tc.pipeline, time.Second, nil),
				httpcontext.NewAdapter(context.Background(), time.Second),
				nil,
			)

			var ctx fasthttp.RequestCtx
			ctx.Request.Header.SetMethod(fasthttp.MethodPost)
			ctx.Request.Header.Set(httpcontext.HeaderRequestID, "req-1")
			ctx.Request.SetBodyString(`[{"objectId":"55"}]`)
			h.Receive(&ctx)

			assert.Equal(t, tc.wantStatus, ctx.Response.StatusCode())
			assert.Equal(t, `[{"objectId":"55"}]`, tc.pipeline.body)

			env, data := decodeEnvelope(t, ctx.Response.Body())
			assert.Equal(t, tc.wantCode, env.Code)
			assert.Equal(t, "req-1", env.RequestID)
			assert.Equal(t, string(tc.pipeline.outcome.State), data["state"])
		})
	}
}

type fixedStatus monitor.Status

func (s fixedStatus) GetStatus() monitor.Status { return monitor.Status(s) }

func TestHealthHandler_Check(t *testing.T) {
	var ctx fasthttp.RequestCtx
	NewHealthHandler(fixedStatus{Ledger: true, Credential: true, LedgerBackend: "memory"}, nil, nil).Check(&ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	env, _ := decodeEnvelope(t, ctx.Response.Body())
	assert.Equal(t, "success", env.Status)

	ctx.Response.Reset()
	NewHealthHandler(fixedStatus{Ledger: true}, nil, nil).Check(&ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())

	env, _ = decodeEnvelope(t, ctx.Response.Body())
	assert.Equal(t, "DEGRADED", env.Code)
}

func TestLambdaHandler_Handle(t *testing.T) {
	pipeline := &stubPipeline{outcome: domain.Outcome{State: domain.StateCompleted}}
	h := NewLambdaHandler(trigger.NewHandler(pipeline, time.Second, nil), nil, nil)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      "POST",
		Body:            base64.StdEncoding.EncodeToString([]byte(`[{"objectId":"55","propertyValue":"x"}]`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `[{"objectId":"55","propertyValue":"x"}]`, pipeline.body)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestLambdaHandler_Signature(t *testing.T) {
	pipeline := &stubPipeline{outcome: domain.Outcome{State: domain.StateCompleted}}
	verifier := middleware.NewSignatureVerifier(config.WebhookConfig{ClientSecret: "s3cret"})
	h := NewLambdaHandler(trigger.NewHandler(pipeline, time.Second, nil), verifier, nil)

	body := `[{"objectId":"55","propertyValue":"x"}]`
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signature := hubspot.SignV3("s3cret", hubspot.SignatureRequest{
		Method:    "POST",
		URI:       "https://abc.execute-api.eu-west-1.amazonaws.com/webhook?portal=7",
		Body:      []byte(body),
		Timestamp: timestamp,
	})

	req := events.APIGatewayProxyRequest{
		HTTPMethod:            "POST",
		Path:                  "/webhook",
		QueryStringParameters: map[string]string{"portal": "7"},
		Headers: map[string]string{
			"host":                        "abc.execute-api.eu-west-1.amazonaws.com",
			"x-hubspot-request-timestamp": timestamp,
			"x-hubspot-signature-v3":      signature,
		},
		Body: body,
	}

	resp, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req.Headers["x-hubspot-signature-v3"] = "forged"
	resp, err = h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func signedFunctionURLRequest(t *testing.T, secret, body string) events.LambdaFunctionURLRequest {
	t.Helper()
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signature := hubspot.SignV3(secret, hubspot.SignatureRequest{
		Method:    "POST",
		URI:       "https://xyz.lambda-url.eu-west-1.on.aws/?portal=7&app=3",
		Body:      []byte(body),
		Timestamp: timestamp,
	})

	return events.LambdaFunctionURLRequest{
		Version:        "2.0",
		RawPath:        "/",
		RawQueryString: "portal=7&app=3",
		Headers: map[string]string{
			"host":                        "xyz.lambda-url.eu-west-1.on.aws",
			"x-hubspot-request-timestamp": timestamp,
			"x-hubspot-signature-v3":      signature,
		},
		RequestContext: events.LambdaFunctionURLRequestContext{
			RequestID:  "req-fn",
			DomainName: "xyz.lambda-url.eu-west-1.on.aws",
			HTTP:       events.LambdaFunctionURLRequestContextHTTPDescription{Method: "POST", Path: "/"},
		},
		Body: body,
	}
}

func TestLambdaHandler_HandleFunctionURL(t *testing.T) {
	pipeline := &stubPipeline{outcome: domain.Outcome{State: domain.StateCompleted}}
	verifier := middleware.NewSignatureVerifier(config.WebhookConfig{ClientSecret: "s3cret"})
	h := NewLambdaHandler(trigger.NewHandler(pipeline, time.Second, nil), verifier, nil)

	body := `[{"objectId":"55","propertyValue":"x"}]`
	req := signedFunctionURLRequest(t, "s3cret", body)

	resp, err := h.HandleFunctionURL(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, body, pipeline.body)

	env, _ := decodeEnvelope(t, []byte(resp.Body))
	assert.Equal(t, "req-fn", env.RequestID)

	req.RequestContext.HTTP.Method = "GET"
	resp, err = h.HandleFunctionURL(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestLambdaHandler_InvokeDispatchesByPayloadVersion(t *testing.T) {
	pipeline := &stubPipeline{outcome: domain.Outcome{State: domain.StateCompleted}}
	verifier := middleware.NewSignatureVerifier(config.WebhookConfig{ClientSecret: "s3cret"})
	h := NewLambdaHandler(trigger.NewHandler(pipeline, time.Second, nil), verifier, nil)

	raw, err := json.Marshal(signedFunctionURLRequest(t, "s3cret", `[{"objectId":"55","propertyValue":"v2"}]`))
	require.NoError(t, err)

	out, err := h.Invoke(context.Background(), raw)
	require.NoError(t, err)
	fnResp, ok := out.(events.LambdaFunctionURLResponse)
	require.True(t, ok)
	assert.Equal(t, 200, fnResp.StatusCode)
	assert.Equal(t, `[{"objectId":"55","propertyValue":"v2"}]`, pipeline.body)

	// Payload 1.0 without a signature is rejected by the REST path.
	raw, err = json.Marshal(events.APIGatewayProxyRequest{HTTPMethod: "POST", Path: "/", Body: `[]`})
	require.NoError(t, err)

	out, err = h.Invoke(context.Background(), raw)
	require.NoError(t, err)
	restResp, ok := out.(events.APIGatewayProxyResponse)
	require.True(t, ok)
	assert.Equal(t, 401, restResp.StatusCode)

	_, err = h.Invoke(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)
}
