package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"openrouter-chat/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	modelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const previewWidth = 72

type transcriptCommander struct {
	root  *rootCommander
	day   string
	limit int
}

func newTranscriptCmd(root *rootCommander) *cobra.Command {
	cmder := &transcriptCommander{root: root}

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "List recorded exchanges for one UTC day",
		Long: `List exchanges recorded in the DynamoDB transcript table, newest first.

Example:
  openrouter-chat transcript --transcript-table exchanges
  openrouter-chat transcript --transcript-table exchanges --day 2026-10-01 --limit 5`,
		Args: cobra.NoArgs,
		RunE: cmder.run,
	}
	cmd.Flags().StringVar(&cmder.day, "day", "", "UTC day as YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&cmder.limit, "limit", 20, "Maximum number of exchanges")
	return cmd
}

func (c *transcriptCommander) run(cmd *cobra.Command, _ []string) error {
	day, err := parseDay(c.day, time.Now())
	if err != nil {
		return err
	}

	cfg, _, err := c.root.setup(cmd)
	if err != nil {
		return err
	}
	if cfg.TranscriptTable == "" {
		return errors.New("transcript: --transcript-table or OPENROUTER_TRANSCRIPT_TABLE is required")
	}

	store, err := c.root.transcriptStore(cmd.Context(), cfg.TranscriptTable)
	if err != nil {
		return err
	}
	exchanges, err := store.ListRecent(cmd.Context(), day, c.limit)
	if err != nil {
		return err
	}
	return renderTranscript(c.root.stdout, day, exchanges)
}

func parseDay(s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return now.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("transcript: --day %q must be YYYY-MM-DD", s)
	}
	return day, nil
}

func renderTranscript(w io.Writer, day time.Time, exchanges []domain.Exchange) error {
	if len(exchanges) == 0 {
		_, err := fmt.Fprintf(w, "No exchanges recorded on %s.\n", day.UTC().Format(time.DateOnly))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s %s\n\n",
		headerStyle.Render("Exchanges on"),
		modelStyle.Render(day.UTC().Format(time.DateOnly)),
	)
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "%s  %s  %s\n",
			timeStyle.Render(ex.CreatedAt.UTC().Format(time.TimeOnly)),
			modelStyle.Render(ex.Model),
			dimStyle.Render(ex.RequestID),
		)
		fmt.Fprintf(&b, "  > %s\n", promptStyle.Render(preview(ex.Prompt)))
		fmt.Fprintf(&b, "  < %s\n\n", preview(ex.Content))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// preview flattens s to one line of at most previewWidth runes.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= previewWidth {
		return s
	}
	return string(r[:previewWidth-3]) + "..."
}
