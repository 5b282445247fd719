package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aeiou/albumtag/internal/engine"
	"github.com/aeiou/albumtag/internal/model"
	"github.com/aeiou/albumtag/internal/session"
)

var (
	flagAlbum  string
	flagArtist string
	flagGenre  string
	flagYear   int
	flagCover  string
	flagYes    bool
)

var rootCmd = &cobra.Command{
	Use:   "albumtag [directory]",
	Short: "Standardize album metadata and embed cover art in place",
	Long: `albumtag walks one album folder, confirms the tracklist, and rewrites
each file's native tag container (ID3v2, Vorbis comment, MP4 ilst) in place.
Writes are atomic: a failure never leaves a half-written file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagAlbum, "album", "", "album title (default: folder name)")
	rootCmd.Flags().StringVar(&flagArtist, "artist", "", "artist name")
	rootCmd.Flags().StringVar(&flagGenre, "genre", "", "genre")
	rootCmd.Flags().IntVar(&flagYear, "year", 0, "release year")
	rootCmd.Flags().StringVar(&flagCover, "cover", "", "path to cover art image")
	rootCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip prompts, accept defaults and flags")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var dir string
	if len(args) == 1 {
		dir = args[0]
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		dir = wd
	}

	out := cmd.OutOrStdout()
	session.RenderBanner(out, dir, time.Now())

	files, err := session.FindAudioFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported audio files (mp3, flac, m4a, mp4) in %s", dir)
	}

	meta := session.DefaultAlbumMetadata(dir, time.Now())
	if flagAlbum != "" {
		meta.Album = flagAlbum
	}
	if flagArtist != "" {
		meta.Artist = flagArtist
	}
	if flagGenre != "" {
		meta.Genre = flagGenre
	}
	if flagYear != 0 {
		meta.Year = flagYear
	}

	prompter := session.NewPrompter(cmd.InOrStdin(), out)

	var (
		choices   []session.TrackChoice
		cover     *model.Image
		coverName string
	)

	if flagYes {
		for _, file := range files {
			choices = append(choices, session.TrackChoice{Path: file, Title: baseTitle(file)})
		}
	} else {
		choices = prompter.ConfirmTracklist(files)
		if len(choices) == 0 {
			fmt.Fprintln(out, "Aborting. Re-run to re-order or re-confirm.")
			return nil
		}
		meta = prompter.AlbumPrompts(meta)
	}

	switch {
	case flagCover != "":
		cover, err = session.LoadCover(flagCover)
		if err != nil {
			return fmt.Errorf("load cover %s: %w", flagCover, err)
		}
		coverName = flagCover
	case !flagYes:
		cover, err = prompter.ChooseCover(dir)
		if err != nil {
			return err
		}
		if cover != nil {
			coverName = "embedded image"
		}
	}

	results := engine.New().ProcessAll(session.BuildItems(choices, meta, cover))
	session.RenderSummary(out, meta, coverName, results)

	for _, result := range results {
		if result.Status == engine.StatusFailed {
			return errors.New("some files were not tagged cleanly")
		}
	}
	return nil
}

func baseTitle(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
