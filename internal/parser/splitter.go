package parser

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter breaks text into chunks of at most chunkSize runes, preferring
// paragraph and sentence boundaries and carrying a small overlap between
// consecutive chunks so retrieval keeps cross-boundary context.
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize int, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, defaultSeparators)
}

func (s *Splitter) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}
	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardCut(text)
	}

	var out []string
	var cur []string
	curLen := 0
	fresh := 0 // pieces added since the last overlap carry-over

	flush := func() {
		if fresh == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(cur, sep))
		if chunk != "" {
			out = append(out, chunk)
		}
		var tail []string
		tailLen := 0
		for i := len(cur) - 1; i >= 0; i-- {
			l := utf8.RuneCountInString(cur[i]) + utf8.RuneCountInString(sep)
			if tailLen+l > s.overlap {
				break
			}
			tailLen += l
			tail = append([]string{cur[i]}, tail...)
		}
		cur = tail
		curLen = tailLen
		fresh = 0
	}

	for _, piece := range strings.Split(text, sep) {
		pl := utf8.RuneCountInString(piece)
		if pl > s.chunkSize {
			flush()
			cur = nil
			curLen = 0
			out = append(out, s.split(piece, rest)...)
			continue
		}
		if curLen > 0 && curLen+pl+utf8.RuneCountInString(sep) > s.chunkSize {
			flush()
		}
		cur = append(cur, piece)
		curLen += pl + utf8.RuneCountInString(sep)
		fresh++
	}
	flush()
	return out
}

// hardCut slices text into fixed-size rune windows when no separator fits,
// stepping by chunkSize minus overlap.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}
