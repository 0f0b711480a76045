package textdiff

import "strings"

// DefaultLookahead is the number of words scanned ahead on either side when
// the cursors disagree.
const DefaultLookahead = 10

// SegmentType classifies a run of words in a diff.
type SegmentType string

const (
	SegmentAdd       SegmentType = "add"
	SegmentRemove    SegmentType = "remove"
	SegmentUnchanged SegmentType = "unchanged"
)

// Segment is a run of words sharing the same diff classification.
type Segment struct {
	Type    SegmentType `json:"type"`
	Content string      `json:"content"`
}

// Differ computes greedy word-level diffs. The zero value uses DefaultLookahead.
//
// The alignment is not a minimal edit script: on a mismatch the new side is
// searched first, then the old side, each within Lookahead words, which keeps
// the cost linear in the input for a fixed lookahead.
type Differ struct {
	Lookahead int
}

// NewDiffer returns a Differ with the given lookahead; non-positive values fall
// back to DefaultLookahead.
func NewDiffer(lookahead int) Differ {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return Differ{Lookahead: lookahead}
}

// Diff compares two normalised texts word by word.
func (d Differ) Diff(oldText, newText string) []Segment {
	return d.DiffWords(Words(oldText), Words(newText))
}

// DiffWords compares two word sequences. Every old word lands in exactly one
// remove or unchanged segment and every new word in exactly one add or
// unchanged segment, in order.
func (d Differ) DiffWords(oldWords, newWords []string) []Segment {
	lookahead := d.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}

	w := &segmentWriter{segments: make([]Segment, 0)}
	i, j := 0, 0
	for {
		switch {
		case i >= len(oldWords) && j >= len(newWords):
			return w.segments
		case i >= len(oldWords):
			w.emit(SegmentAdd, newWords[j:])
			return w.segments
		case j >= len(newWords):
			w.emit(SegmentRemove, oldWords[i:])
			return w.segments
		}

		if oldWords[i] == newWords[j] {
			run := 1
			for i+run < len(oldWords) && j+run < len(newWords) && oldWords[i+run] == newWords[j+run] {
				run++
			}
			w.emit(SegmentUnchanged, oldWords[i:i+run])
			i += run
			j += run
			continue
		}

		if k := indexWithin(newWords, j+1, lookahead, oldWords[i]); k >= 0 {
			w.emit(SegmentAdd, newWords[j:k])
			j = k
			continue
		}

		if k := indexWithin(oldWords, i+1, lookahead, newWords[j]); k >= 0 {
			w.emit(SegmentRemove, oldWords[i:k])
			i = k
			continue
		}

		w.emit(SegmentRemove, oldWords[i:i+1])
		w.emit(SegmentAdd, newWords[j:j+1])
		i++
		j++
	}
}

// indexWithin returns the first index in words[from:from+limit] equal to
// target, or -1.
func indexWithin(words []string, from, limit int, target string) int {
	for k := from; k < len(words) && k < from+limit; k++ {
		if words[k] == target {
			return k
		}
	}
	return -1
}

type segmentWriter struct {
	segments []Segment
}

// emit appends words as a segment, merging into the previous segment when the
// type matches.
func (w *segmentWriter) emit(kind SegmentType, words []string) {
	if len(words) == 0 {
		return
	}
	content := strings.Join(words, " ")
	if last := len(w.segments) - 1; last >= 0 && w.segments[last].Type == kind {
		w.segments[last].Content += " " + content
		return
	}
	w.segments = append(w.segments, Segment{Type: kind, Content: content})
}

// AddedWords returns the words of every add segment, in order.
func AddedWords(segments []Segment) []string {
	var words []string
	for _, segment := range segments {
		if segment.Type == SegmentAdd {
			words = append(words, Words(segment.Content)...)
		}
	}
	return words
}

// HasChanges reports whether any segment is an add or remove.
func HasChanges(segments []Segment) bool {
	for _, segment := range segments {
		if segment.Type != SegmentUnchanged {
			return true
		}
	}
	return false
}
