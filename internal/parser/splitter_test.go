package parser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks := s.Split("a short paragraph that fits in one chunk")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph that fits in one chunk", chunks[0])
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(500, 50)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\n  "))
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 50) // ~300 runes
	para2 := strings.Repeat("beta ", 50)
	chunks := NewSplitter(400, 50).Split(para1 + "\n\n" + para2)
	require.Len(t, chunks, 2)
	assert.NotContains(t, chunks[0], "beta")
	assert.Contains(t, chunks[1], "beta")
}

func TestSplitRespectsChunkSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("this is a sentence about knowledge bases. ")
	}
	chunks := NewSplitter(500, 50).Split(sb.String())
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 500)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	var sentences []string
	for i := 0; i < 60; i++ {
		sentences = append(sentences, "sentence number "+strings.Repeat("x", i%7))
	}
	text := strings.Join(sentences, ". ")
	chunks := NewSplitter(200, 40).Split(text)
	require.Greater(t, len(chunks), 1)
	// the tail of each chunk reappears at the head of the next
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if utf8.RuneCountInString(head) > 40 {
			head = string([]rune(head)[:20])
		}
		assert.Contains(t, chunks[i-1], strings.Split(head, ".")[0])
	}
}

func TestSplitHardCutsUnbreakableRun(t *testing.T) {
	text := strings.Repeat("A", 1200)
	chunks := NewSplitter(500, 50).Split(text)
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 500)
	}
	assert.Equal(t, strings.Repeat("A", 500), chunks[0])
}

func TestExtractTextDispatch(t *testing.T) {
	txt, err := ExtractText("notes.txt", []byte("plain text body"))
	require.NoError(t, err)
	assert.Equal(t, "plain text body", txt)

	md, err := ExtractText("guide.md", []byte("# Title\n\nSome **bold** prose.\n\n- item one\n- item two\n"))
	require.NoError(t, err)
	assert.Contains(t, md, "Title")
	assert.Contains(t, md, "Some bold prose.")
	assert.Contains(t, md, "item one")
	assert.NotContains(t, md, "**")
	assert.NotContains(t, md, "#")

	_, err = ExtractText("report.pdf", []byte("%PDF"))
	require.Error(t, err)
}

func TestSupportedExt(t *testing.T) {
	assert.True(t, SupportedExt("a.md"))
	assert.True(t, SupportedExt("a.MARKDOWN"))
	assert.True(t, SupportedExt("a.txt"))
	assert.False(t, SupportedExt("a.docx"))
	assert.False(t, SupportedExt("noext"))
}
