package paramstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/openrouter-chat/api-key"),
		Value: aws.String("sk-or-v1-abc"),
		Type:  types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /openrouter-chat/api-key ")
	require.NoError(t, err)
	require.Equal(t, "sk-or-v1-abc", v)
	require.Equal(t, "/openrouter-chat/api-key", aws.ToString(api.lastIn.Name))
	require.True(t, aws.ToBool(api.lastIn.WithDecryption))
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: aws.String("p")}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no value")
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: fmt.Errorf("operation error SSM: GetParameter: %w", &types.ParameterNotFound{})}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/missing")
	require.ErrorIs(t, err, ErrParameterNotFound)
	require.Contains(t, err.Error(), "/missing")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrParameterNotFound)
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestJoin(t *testing.T) {
	cases := []struct {
		prefix, leaf, want string
	}{
		{"/openrouter-chat", "api-key", "/openrouter-chat/api-key"},
		{"/openrouter-chat/", "/api-key", "/openrouter-chat/api-key"},
		{"", "api-key", "/api-key"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Join(tc.prefix, tc.leaf))
	}
}
