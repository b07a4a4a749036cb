package rag

import (
	"strings"
)

// SplitText splits text into chunks of at most chunkSize characters, with
// adjacent chunks sharing up to overlap characters. Cuts prefer paragraph,
// then line, then word boundaries; only when no boundary exists in the
// window does a chunk break mid-word.
func SplitText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	chunks := make([]string, 0, len(text)/step+1)

	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			if chunk := strings.TrimSpace(text[start:]); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := start + boundaryIndex(text[start:end], step)
		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = start + step
		}
		start = next
	}

	return chunks
}

// boundaryIndex finds the best cut point within the window. Boundaries in
// the first half of the step are rejected so chunks keep a useful size.
func boundaryIndex(window string, step int) int {
	minCut := step / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > minCut {
			return i
		}
	}
	return len(window)
}
