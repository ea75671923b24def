package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"openrouter-chat/internal/domain"
)

func TestParseDay(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	day, err := parseDay("", now)
	require.NoError(t, err)
	require.Equal(t, now, day)

	day, err = parseDay(" 2026-10-01 ", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDay("01/10/2026", now)
	require.Error(t, err)
}

func TestRenderTranscript(t *testing.T) {
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, renderTranscript(&buf, day, nil))
	require.Equal(t, "No exchanges recorded on 2026-10-15.\n", buf.String())

	buf.Reset()
	require.NoError(t, renderTranscript(&buf, day, []domain.Exchange{{
		RequestID: "req-1",
		Model:     "minimax/minimax-m2:free",
		Prompt:    "How are\nyou doing?",
		Content:   strings.Repeat("a", 100),
		CreatedAt: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}}))
	out := buf.String()
	require.Contains(t, out, "09:30:00")
	require.Contains(t, out, "minimax/minimax-m2:free")
	require.Contains(t, out, "req-1")
	require.Contains(t, out, "How are you doing?")
	require.Contains(t, out, strings.Repeat("a", previewWidth-3)+"...")
}

func TestTranscript_RequiresTable(t *testing.T) {
	clearEnv(t)
	_, _, err := execute(t, "transcript")
	require.Error(t, err)
	require.Contains(t, err.Error(), "transcript-table")
}
