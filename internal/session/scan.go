package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/aeiou/albumtag/internal/sniff"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// FindAudioFiles lists the supported audio files directly inside dir,
// sorted by name. An album is one flat folder; subdirectories are not
// descended into.
func FindAudioFiles(dir string) ([]string, error) {
	return findByMatch(dir, sniff.IsAudioPath)
}

// FindCoverImages lists the candidate cover art images inside dir.
func FindCoverImages(dir string) ([]string, error) {
	return findByMatch(dir, func(path string) bool {
		return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
	})
}

func findByMatch(dir string, match func(string) bool) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if match(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
