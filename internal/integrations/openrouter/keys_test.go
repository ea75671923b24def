package openrouter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val      string
	err      error
	lastName string
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	f.lastName = name
	return f.val, f.err
}

func TestStaticKey(t *testing.T) {
	key, err := StaticKey(" sk-env ").APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)

	_, err = StaticKey("").APIKey(context.Background())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestParamStoreKey_UsesName(t *testing.T) {
	g := &fakeGetter{val: "sk-raw"}
	key, err := ParamStoreKey{Getter: g, Name: "/openrouter-chat/api-key"}.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-raw", key)
	require.Equal(t, "/openrouter-chat/api-key", g.lastName)
}

func TestFetchAPIKey_JSONToken(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-json"}`}
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/openrouter-chat/api-key")
	require.NoError(t, err)
	require.Equal(t, "sk-from-json", key)
}

func TestFetchAPIKey_PlainValue(t *testing.T) {
	g := &fakeGetter{val: "  sk-plain\n"}
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/openrouter-chat/api-key")
	require.NoError(t, err)
	require.Equal(t, "sk-plain", key)
}

func TestFetchAPIKey_JSONMissingTokenField(t *testing.T) {
	g := &fakeGetter{val: `{"other":"value"}`}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, "/openrouter-chat/api-key")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchAPIKey_MalformedJSON(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-secret-broken`}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, "/openrouter-chat/api-key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
	require.NotContains(t, err.Error(), "sk-secret-broken")
}

func TestFetchAPIKey_EmptyValue(t *testing.T) {
	g := &fakeGetter{val: "   "}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, "/openrouter-chat/api-key")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchAPIKey_GetterError(t *testing.T) {
	g := &fakeGetter{err: errors.New("ssm unavailable")}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, "/openrouter-chat/api-key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")
}

func TestFetchAPIKey_NilGetter(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), nil, "/openrouter-chat/api-key")
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestFetchAPIKey_EmptyName(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-json"}`}
	_, err := fetchAPIKeyFromParamStore(context.Background(), g, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}
