package session

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aeiou/albumtag/internal/engine"
	"github.com/aeiou/albumtag/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// RenderBanner prints the timestamped session header.
func RenderBanner(w io.Writer, dir string, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render("ALBUM METADATA MANAGER"))
	fmt.Fprintf(w, "Directory: %s\n", dir)
	fmt.Fprintf(w, "Session:   %s\n", now.Format("2006-01-02 15:04:05"))
}

// RenderSummary prints the album answers and every file's outcome in
// processing order. Nothing fails silently.
func RenderSummary(w io.Writer, meta AlbumMetadata, coverName string, results []engine.TagCommitResult) {
	fmt.Fprintln(w, headerStyle.Render("\n--- SESSION SUMMARY ---"))
	fmt.Fprintf(w, "Album : %s\n", meta.Album)
	fmt.Fprintf(w, "Artist: %s\n", meta.Artist)
	fmt.Fprintf(w, "Genre : %s\n", meta.Genre)
	fmt.Fprintf(w, "Year  : %d\n", meta.Year)
	if coverName != "" {
		fmt.Fprintf(w, "Cover : %s\n", coverName)
	} else {
		fmt.Fprintln(w, "Cover : (not embedded)")
	}
	fmt.Fprintln(w)

	for i, result := range results {
		name := filepath.Base(result.Path)
		switch result.Status {
		case engine.StatusSuccess:
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, successStyle.Render("[ OK ]"), name)
		case engine.StatusSkipped:
			fmt.Fprintf(w, "  %d. %s %s: %v\n", i+1, skippedStyle.Render("[SKIP]"), name, result.Err)
		default:
			fmt.Fprintf(w, "  %d. %s %s: %v\n", i+1, failedStyle.Render("[FAIL]"), name, result.Err)
			if result.NeedsManualCheck() {
				fmt.Fprintf(w, "       %s\n",
					warnStyle.Render("verify this file by hand; it may be partially rewritten"))
			}
		}
	}
}

// BuildItems turns the confirmed tracklist and album answers into ordered
// per-file overrides. Track numbers follow the confirmed order.
func BuildItems(choices []TrackChoice, meta AlbumMetadata, cover *model.Image) []engine.Item {
	items := make([]engine.Item, 0, len(choices))
	for i, choice := range choices {
		items = append(items, engine.Item{
			Path: choice.Path,
			Overrides: &model.Tags{
				Title:       model.String(choice.Title),
				Artist:      model.String(meta.Artist),
				Album:       model.String(meta.Album),
				Genre:       model.String(meta.Genre),
				Year:        model.Int(meta.Year),
				TrackNumber: model.Int(i + 1),
				Cover:       cover,
			},
		})
	}
	return items
}
