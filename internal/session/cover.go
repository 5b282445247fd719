package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aeiou/albumtag/internal/model"
)

// LoadCover reads an image file into a cover value. The mime type is
// declared from the extension and must agree with the magic bytes.
func LoadCover(path string) (*model.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mimeType := model.MimeJPEG
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mimeType = model.MimePNG
	}

	cover := &model.Image{MimeType: mimeType, Data: data, Description: "Cover"}
	if err := cover.Validate(); err != nil {
		return nil, err
	}
	return cover, nil
}

// ChooseCover finds cover art in dir: a single image is taken as-is,
// several offer a numbered pick, none falls back to manual path entry.
// A nil cover with nil error means the user declined.
func (p *Prompter) ChooseCover(dir string) (*model.Image, error) {
	images, err := FindCoverImages(dir)
	if err != nil {
		return nil, err
	}

	switch len(images) {
	case 0:
		fmt.Fprintln(p.out, "\nNo cover art image (*.jpg/*.png) detected in this folder.")
		return p.manualCover()
	case 1:
		fmt.Fprintf(p.out, "\nFound cover art: %s\n", filepath.Base(images[0]))
		return LoadCover(images[0])
	default:
		fmt.Fprintf(p.out, "\n%d images detected. Please choose which one to embed:\n", len(images))
		for i, image := range images {
			fmt.Fprintf(p.out, "  %d. %s\n", i+1, filepath.Base(image))
		}
		fmt.Fprint(p.out, "Select image number or press Enter to use the first: ")

		chosen := 0
		if answer := p.readLine(); answer != "" {
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(images) {
				chosen = n - 1
			} else {
				fmt.Fprintln(p.out, "Invalid choice. Defaulting to the first image.")
			}
		}
		fmt.Fprintf(p.out, "Using cover art: %s\n", filepath.Base(images[chosen]))
		return LoadCover(images[chosen])
	}
}

func (p *Prompter) manualCover() (*model.Image, error) {
	fmt.Fprint(p.out, "Would you like to select a cover image manually? (Y/n): ")
	if strings.HasPrefix(strings.ToLower(p.readLine()), "n") {
		return nil, nil
	}

	fmt.Fprint(p.out, "Enter full path to image file (or press Enter to skip): ")
	path := p.readLine()
	if path == "" {
		return nil, nil
	}

	cover, err := LoadCover(path)
	if err != nil {
		fmt.Fprintf(p.out, "Cannot use %s: %v. Skipping cover art.\n", path, err)
		return nil, nil
	}
	fmt.Fprintf(p.out, "Using manual cover art: %s\n", path)
	return cover, nil
}
