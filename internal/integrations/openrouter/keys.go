package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// KeySource supplies the bearer credential for outgoing requests.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a credential taken from the environment or a flag.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// Getter is the interface that wraps GetParameter. *paramstore.Client
// satisfies it.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStoreKey reads the credential from an SSM parameter.
type ParamStoreKey struct {
	Getter Getter
	Name   string
}

func (k ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	return fetchAPIKeyFromParamStore(ctx, k.Getter, k.Name)
}

// tokenPayload is the JSON shape accepted for SSM-stored tokens. A plain
// string value is accepted as well.
type tokenPayload struct {
	Token string `json:"token"`
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openrouter: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("openrouter: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openrouter: fetch token from paramstore: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", ErrMissingAPIKey
		}
		return raw, nil
	}

	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		// json errors can quote the secret value
		return "", errors.New("openrouter: unmarshal paramstore token value as JSON")
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", ErrMissingAPIKey
	}
	return strings.TrimSpace(tp.Token), nil
}
