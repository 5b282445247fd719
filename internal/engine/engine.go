package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	dhowden "github.com/dhowden/tag"
	"github.com/sirupsen/logrus"

	"github.com/aeiou/albumtag/internal/codec"
	"github.com/aeiou/albumtag/internal/fsatomic"
	"github.com/aeiou/albumtag/internal/model"
	"github.com/aeiou/albumtag/internal/sniff"
)

// DefaultMaxCoverBytes is the soft cap above which an embedded cover
// image draws a warning. Some players ignore oversized pictures.
const DefaultMaxCoverBytes = 10 << 20

// Status is the terminal outcome of processing one file.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TagCommitResult is the per-file outcome, produced once per processed
// file and never retried.
type TagCommitResult struct {
	Path   string
	Kind   sniff.Kind
	Status Status
	Err    error
}

// NeedsManualCheck reports whether the rename step failed partway: the
// file may or may not carry the new tags and must be verified by hand.
func (r TagCommitResult) NeedsManualCheck() bool {
	return errors.Is(r.Err, fsatomic.ErrPartialWrite)
}

// Item pairs a file with the overrides the user wants written to it.
type Item struct {
	Path      string
	Overrides *model.Tags
}

// Engine orchestrates classify, decode, merge, encode and atomic commit
// for one file at a time.
type Engine struct {
	// MaxCoverBytes is the soft cover size cap; zero disables the warning.
	MaxCoverBytes int
	Log           *logrus.Logger
}

func New() *Engine {
	return &Engine{
		MaxCoverBytes: DefaultMaxCoverBytes,
		Log:           logrus.StandardLogger(),
	}
}

// ProcessAll processes the files sequentially, in order. One bad file
// never blocks the rest of the album; every outcome lands in the
// returned slice in input order.
func (e *Engine) ProcessAll(items []Item) []TagCommitResult {
	results := make([]TagCommitResult, 0, len(items))
	for _, item := range items {
		results = append(results, e.Process(item.Path, item.Overrides))
	}
	return results
}

// Process runs the full pipeline for one file. Any stage failure
// short-circuits to StatusFailed with the stage named in the error;
// a format rejection short-circuits to StatusSkipped. A file that cannot
// be read at all is a failure, not a skip.
func (e *Engine) Process(path string, overrides *model.Tags) TagCommitResult {
	kind, err := sniff.Classify(path)
	if err != nil {
		if errors.Is(err, sniff.ErrUnsupportedFormat) {
			return TagCommitResult{Path: path, Status: StatusSkipped, Err: err}
		}
		return TagCommitResult{Path: path, Status: StatusFailed, Err: err}
	}

	result := TagCommitResult{Path: path, Kind: kind}

	if overrides == nil {
		overrides = &model.Tags{}
	}
	if err := overrides.Validate(); err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("validate overrides: %w", err)
		return result
	}
	if overrides.Empty() {
		// Nothing to write, so the file bytes stay exactly as they are.
		result.Status = StatusSuccess
		return result
	}

	if cover := overrides.Cover; cover != nil && e.MaxCoverBytes > 0 && len(cover.Data) > e.MaxCoverBytes {
		e.Log.WithFields(logrus.Fields{
			"path":  path,
			"bytes": len(cover.Data),
			"cap":   e.MaxCoverBytes,
		}).Warn("cover image exceeds the soft size cap; some players may ignore it")
	}

	cdc := codec.ForKind(kind)

	err = fsatomic.Commit(path, func(original []byte) ([]byte, error) {
		existing, degraded := cdc.Decode(original)
		if degraded {
			e.Log.WithField("path", path).
				Warn("existing tag region is unreadable; writing fresh tags")
		}

		merged := existing
		merged.Merge(overrides)
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("validate merged tags: %w", err)
		}

		rewritten, err := cdc.Encode(merged, original)
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		return rewritten, nil
	})
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("commit: %w", err)
		return result
	}

	e.verify(path, overrides)

	result.Status = StatusSuccess
	return result
}

// verify re-reads the written file with an independent parser and compares
// the fields that were just written. A mismatch is only a warning: the
// commit itself completed cleanly. The year is left unchecked because the
// containers spell it as a date string and parsers normalize it differently.
func (e *Engine) verify(path string, overrides *model.Tags) {
	file, err := os.Open(path)
	if err != nil {
		e.Log.WithField("path", path).WithError(err).Warn("could not re-open file for verification")
		return
	}
	defer file.Close()

	written, err := dhowden.ReadFrom(file)
	if err != nil {
		e.Log.WithField("path", path).WithError(err).Warn("could not re-parse file for verification")
		return
	}

	mismatch := func(field, got, want string) {
		e.Log.WithFields(logrus.Fields{
			"path":  path,
			"field": field,
			"got":   got,
			"want":  want,
		}).Warn("verification mismatch after write")
	}

	if overrides.Title != nil && written.Title() != *overrides.Title {
		mismatch("title", written.Title(), *overrides.Title)
	}
	if overrides.Artist != nil && written.Artist() != *overrides.Artist {
		mismatch("artist", written.Artist(), *overrides.Artist)
	}
	if overrides.Album != nil && written.Album() != *overrides.Album {
		mismatch("album", written.Album(), *overrides.Album)
	}
	if overrides.Genre != nil && written.Genre() != *overrides.Genre {
		mismatch("genre", written.Genre(), *overrides.Genre)
	}
	if overrides.TrackNumber != nil {
		if number, _ := written.Track(); number != *overrides.TrackNumber {
			mismatch("track", strconv.Itoa(number), strconv.Itoa(*overrides.TrackNumber))
		}
	}
}
