package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("a short document", 3000, 600)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0])
}

func TestSplitTextEmptyInput(t *testing.T) {
	assert.Nil(t, SplitText("", 3000, 600))
	assert.Nil(t, SplitText("   \n\n  ", 3000, 600))
}

func TestSplitTextOverlappingChunks(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 40) // ~1080 runes
	chunks := SplitText(text, 200, 40)

	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 200)
		assert.NotEmpty(t, c)
	}

	// consecutive chunks share text through the overlap
	tail := chunks[0][len(chunks[0])-20:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("x", 150)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := SplitText(text, 200, 20)

	require.NotEmpty(t, chunks)
	assert.Equal(t, para, chunks[0])
}

func TestSplitTextAlwaysTerminates(t *testing.T) {
	// no separators at all, overlap close to the chunk size
	text := strings.Repeat("y", 1000)
	chunks := SplitText(text, 100, 99)

	require.NotEmpty(t, chunks)
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	assert.GreaterOrEqual(t, total, 1000)
}
