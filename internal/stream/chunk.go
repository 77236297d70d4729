package stream

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ChunkMode selects the granularity of emitted chunks.
type ChunkMode string

const (
	ChunkChar  ChunkMode = "char"  // one rune per chunk
	ChunkWord  ChunkMode = "word"  // a word and the whitespace following it
	ChunkBlock ChunkMode = "block" // a fixed number of runes
)

func (m ChunkMode) IsValid() bool {
	switch m {
	case ChunkChar, ChunkWord, ChunkBlock:
		return true
	}
	return false
}

// Split cuts text into chunks whose concatenation is exactly text.
// size is the rune count per chunk in ChunkBlock mode and is ignored otherwise.
func Split(text string, mode ChunkMode, size int) ([]string, error) {
	switch mode {
	case ChunkChar:
		return splitBlocks(text, 1), nil
	case ChunkBlock:
		if size < 1 {
			return nil, fmt.Errorf("block size must be at least 1, got %d", size)
		}
		return splitBlocks(text, size), nil
	case ChunkWord:
		return splitWords(text), nil
	default:
		return nil, fmt.Errorf("unknown chunk mode %q", mode)
	}
}

// splitBlocks slices the original bytes so invalid UTF-8 survives untouched.
func splitBlocks(text string, runes int) []string {
	chunks := make([]string, 0, utf8.RuneCountInString(text)/runes+1)
	start, n := 0, 0
	for i := 0; i < len(text); {
		_, w := utf8.DecodeRuneInString(text[i:])
		i += w
		n++
		if n == runes {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}

func splitWords(text string) []string {
	var chunks []string
	start, i := 0, 0
	for i < len(text) {
		// word
		for i < len(text) {
			r, w := utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += w
		}
		// trailing whitespace
		for i < len(text) {
			r, w := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += w
		}
		chunks = append(chunks, text[start:i])
		start = i
	}
	return chunks
}
