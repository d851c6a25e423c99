// Package credential resolves the CRM access token once per process.
package credential

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/fastygo/productsync/domain"
)

// DefaultTokenField is the JSON key looked up in structured secrets.
const DefaultTokenField = "API_TOKEN"

// SecretFetcher is the subset of the Secrets Manager client used here.
type SecretFetcher interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider hands out the access token. The first call loads it; every later
// call returns the cached result, including a cached failure.
type Provider struct {
	load func(ctx context.Context) (string, error)

	once   sync.Once
	token  string
	err    error
	loaded atomic.Bool
}

// NewStaticProvider serves a directly configured token.
func NewStaticProvider(token string) *Provider {
	return &Provider{load: func(context.Context) (string, error) {
		token = strings.TrimSpace(token)
		if token == "" {
			return "", domain.NewError(domain.ErrCodeCredentialUnavailable, "configured access token is empty")
		}
		return token, nil
	}}
}

// NewSecretProvider reads the token from the secret store on first use.
func NewSecretProvider(fetcher SecretFetcher, secretID, tokenField string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokenField == "" {
		tokenField = DefaultTokenField
	}
	return &Provider{load: func(ctx context.Context) (string, error) {
		out, err := fetcher.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			return "", domain.WrapError(domain.ErrCodeCredentialUnavailable, "failed to fetch secret", err)
		}
		token, err := ExtractToken(out.SecretString, out.SecretBinary, tokenField)
		if err != nil {
			return "", err
		}
		logger.Info("access token loaded from secret store", zap.String("secret_id", secretID))
		return token, nil
	}}
}

// Token returns the cached token, loading it on the first call.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.token, p.err = p.load(ctx)
		p.loaded.Store(p.err == nil)
	})
	return p.token, p.err
}

// Loaded reports whether a token has been resolved successfully.
func (p *Provider) Loaded() bool {
	return p.loaded.Load()
}

// ExtractToken pulls the token out of a secret payload. A JSON object with a
// non-empty string at field wins; otherwise the whole text is the token.
func ExtractToken(secretString *string, secretBinary []byte, field string) (string, error) {
	var text string
	switch {
	case secretString != nil:
		text = *secretString
	case secretBinary != nil:
		if !utf8.Valid(secretBinary) {
			return "", domain.NewError(domain.ErrCodeCredentialUnavailable, "binary secret is not valid UTF-8 text")
		}
		text = string(secretBinary)
	default:
		return "", domain.ErrCredentialUnavailable
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") {
		var fields map[string]any
		if json.Unmarshal([]byte(text), &fields) == nil {
			if value, ok := fields[field].(string); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value), nil
			}
		}
	}
	if text == "" {
		return "", domain.ErrCredentialUnavailable
	}
	return text, nil
}
