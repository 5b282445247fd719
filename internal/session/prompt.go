package session

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Suggested answers when the user has nothing better.
const (
	DefaultArtist = "Unknown Smuggler"
	DefaultGenre  = "Imperial Underground"
)

// AlbumMetadata is the album-wide answer set applied to every track.
type AlbumMetadata struct {
	Album  string
	Artist string
	Genre  string
	Year   int
}

// DefaultAlbumMetadata derives the suggested answers: the folder name as
// the album title and the current year.
func DefaultAlbumMetadata(dir string, now time.Time) AlbumMetadata {
	album := filepath.Base(filepath.Clean(dir))
	if album == "." || album == string(filepath.Separator) || album == "" {
		album = "Untitled Album"
	}
	return AlbumMetadata{
		Album:  album,
		Artist: DefaultArtist,
		Genre:  DefaultGenre,
		Year:   now.Year(),
	}
}

// TrackChoice is one confirmed tracklist entry.
type TrackChoice struct {
	Path  string
	Title string
}

// Prompter runs the line-oriented question flow on any reader/writer
// pair, which keeps it scriptable in tests.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) readLine() string {
	if !p.in.Scan() {
		return ""
	}
	return strings.TrimSpace(p.in.Text())
}

func (p *Prompter) ask(question, fallback string) string {
	fmt.Fprintf(p.out, "%s (default: %s): ", question, fallback)
	if answer := p.readLine(); answer != "" {
		return answer
	}
	return fallback
}

// ConfirmTracklist walks the candidate files in order, letting the user
// include, skip or rename each track, then asks for a final confirmation.
// A rejected confirmation returns nil.
func (p *Prompter) ConfirmTracklist(files []string) []TrackChoice {
	fmt.Fprintln(p.out, "\n--- TRACKLIST CONFIRMATION ---")

	var confirmed []TrackChoice
	for i, file := range files {
		name := filepath.Base(file)
		title := strings.TrimSuffix(name, filepath.Ext(name))

		fmt.Fprintf(p.out, "\n[%d/%d] File: %q\n", i+1, len(files), name)
		fmt.Fprint(p.out, "  Include? (Y/n/rename): ")

		switch strings.ToLower(p.readLine()) {
		case "n":
			fmt.Fprintf(p.out, "  skipping %s\n", name)
		case "r", "rename":
			fmt.Fprintf(p.out, "  Enter new title for track %d: ", i+1)
			if renamed := p.readLine(); renamed != "" {
				title = renamed
			}
			confirmed = append(confirmed, TrackChoice{Path: file, Title: title})
		default:
			confirmed = append(confirmed, TrackChoice{Path: file, Title: title})
		}
	}

	fmt.Fprintln(p.out, "\n--- FINAL TRACKLIST ---")
	for i, choice := range confirmed {
		fmt.Fprintf(p.out, "  %d. %s (%s)\n", i+1, choice.Title, filepath.Base(choice.Path))
	}

	fmt.Fprint(p.out, "Confirm final tracklist order? (Y/n): ")
	switch strings.ToLower(p.readLine()) {
	case "", "y":
		return confirmed
	default:
		return nil
	}
}

// AlbumPrompts collects the album-wide metadata, offering defaults.
func (p *Prompter) AlbumPrompts(defaults AlbumMetadata) AlbumMetadata {
	fmt.Fprintln(p.out, "\n--- ALBUM METADATA ---")

	meta := defaults
	meta.Album = p.ask("Enter Album Title", defaults.Album)
	meta.Artist = p.ask("Enter Artist Name", defaults.Artist)
	meta.Genre = p.ask("Enter Genre", defaults.Genre)

	if year, err := strconv.Atoi(p.ask("Enter Release Year", strconv.Itoa(defaults.Year))); err == nil {
		meta.Year = year
	}
	return meta
}
