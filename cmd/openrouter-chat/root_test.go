package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"openrouter-chat/internal/usecase"
)

const upstreamBody = `{"id":"gen-1","model":"minimax/minimax-m2:free","choices":[{"index":0,"message":{"role":"assistant","content":"Doing well, thanks!"}}]}`

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENROUTER_BASE_URL", "OPENROUTER_API_KEY", "OPENROUTER_API_KEY_PARAM", "OPENROUTER_MODEL",
		"OPENROUTER_SYSTEM_PROMPT", "SYSTEM_PROMPT", "OPENROUTER_TEMPERATURE", "TEMPERATURE",
		"OPENROUTER_TIMEOUT", "OPENROUTER_TRANSCRIPT_TABLE", "OPENROUTER_LOG_LEVEL", "OPENROUTER_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

type captured struct {
	hits   atomic.Int32
	auth   string
	prompt string
	model  string
}

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.hits.Add(1)
		c.auth = r.Header.Get("Authorization")

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		raw, _ := io.ReadAll(r.Body)
		if json.Unmarshal(raw, &req) == nil {
			c.model = req.Model
			if n := len(req.Messages); n > 0 {
				c.prompt = req.Messages[n-1].Content
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRoot_PrintsPrettyJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	srv, got := newUpstream(t, http.StatusOK, upstreamBody)

	stdout, _, err := execute(t, "--base-url", srv.URL)
	require.NoError(t, err)

	require.Equal(t, int32(1), got.hits.Load())
	require.Equal(t, "Bearer sk-or-test", got.auth)
	require.Equal(t, defaultPrompt, got.prompt)
	require.Equal(t, "minimax/minimax-m2:free", got.model)

	require.JSONEq(t, upstreamBody, stdout)
	require.Contains(t, stdout, "\n    \"id\": \"gen-1\"")
}

func TestRoot_PromptFromArgs(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	srv, got := newUpstream(t, http.StatusOK, upstreamBody)

	_, _, err := execute(t, "--base-url", srv.URL, "--model", "openai/gpt-4o-mini", "What", "is", "2+2?")
	require.NoError(t, err)
	require.Equal(t, "What is 2+2?", got.prompt)
	require.Equal(t, "openai/gpt-4o-mini", got.model)
}

func TestRoot_RawAndContent(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	srv, _ := newUpstream(t, http.StatusOK, upstreamBody)

	stdout, _, err := execute(t, "--base-url", srv.URL, "--raw")
	require.NoError(t, err)
	require.Equal(t, upstreamBody+"\n", stdout)

	stdout, _, err = execute(t, "--base-url", srv.URL, "--content")
	require.NoError(t, err)
	require.Equal(t, "Doing well, thanks!\n", stdout)

	_, _, err = execute(t, "--base-url", srv.URL, "--raw", "--content")
	require.Error(t, err)
}

func TestRoot_UpstreamErrorLeavesStdoutEmpty(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-secret")
	srv, _ := newUpstream(t, http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`)

	stdout, stderr, err := execute(t, "--base-url", srv.URL)
	require.Error(t, err)
	require.Empty(t, stdout)

	var ucErr *usecase.Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, usecase.ErrorUnauthorized, ucErr.Code)

	require.NotContains(t, err.Error(), "sk-or-secret")
	require.NotContains(t, stderr, "sk-or-secret")
}

func TestRoot_MissingCredentialSendsNothing(t *testing.T) {
	clearEnv(t)
	srv, got := newUpstream(t, http.StatusOK, upstreamBody)

	stdout, _, err := execute(t, "--base-url", srv.URL)
	require.True(t, errors.Is(err, errNoCredential))
	require.Empty(t, stdout)
	require.Zero(t, got.hits.Load())
}

func TestRoot_InvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")

	_, _, err := execute(t, "--temperature", "hot")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "temperature"))
}
