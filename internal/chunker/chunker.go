package chunker

import (
	"slices"
	"strings"

	"chunkrelay/internal/convert"
)

// Chunk is one bounded slice of a converted document.
type Chunk struct {
	Index    int      // Position in production order (starts at 0)
	Headings []string // Enclosing section headings, outermost first
	Text     string   // Raw chunk text without context
}

// splitSeparators are tried in order when a chunk exceeds the token budget.
var splitSeparators = []string{"\n\n", "\n", ". ", " "}

// HybridChunker splits documents along their structure, then enforces a token
// budget: oversized chunks are split, and adjacent chunks under the same
// headings are merged while they fit.
type HybridChunker struct {
	maxTokens  int
	tokenizer  Tokenizer
	mergePeers bool
}

// NewHybridChunker creates a chunker with peer merging enabled.
func NewHybridChunker(maxTokens int, tokenizer Tokenizer) *HybridChunker {
	return &HybridChunker{
		maxTokens:  maxTokens,
		tokenizer:  tokenizer,
		mergePeers: true,
	}
}

// MaxTokens returns the per-chunk token budget.
func (c *HybridChunker) MaxTokens() int {
	return c.maxTokens
}

// Chunk produces the ordered chunks of doc. A document without content yields no chunks.
func (c *HybridChunker) Chunk(doc *convert.Document) []Chunk {
	if doc == nil {
		return nil
	}

	chunks := c.hierarchical(doc)
	chunks = c.splitOversized(chunks)
	if c.mergePeers {
		chunks = c.merge(chunks)
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

// Contextualize prefixes the chunk text with its headings so it reads on its own.
func (c *HybridChunker) Contextualize(chunk Chunk) string {
	if len(chunk.Headings) == 0 {
		return chunk.Text
	}
	return strings.Join(chunk.Headings, "\n") + "\n" + chunk.Text
}

// headingInfo tracks heading level and text for building heading paths.
type headingInfo struct {
	level int
	text  string
}

// hierarchical emits one chunk per content item with the active heading path.
// Headings carry context only and produce no chunk of their own.
func (c *HybridChunker) hierarchical(doc *convert.Document) []Chunk {
	var chunks []Chunk
	var stack []headingInfo

	for _, item := range doc.Items {
		if item.Kind == convert.KindHeading {
			level := item.Level
			if level <= 0 {
				level = 1
			}
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingInfo{level: level, text: item.Text})
			continue
		}

		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}

		headings := make([]string, len(stack))
		for i, h := range stack {
			headings[i] = h.text
		}
		chunks = append(chunks, Chunk{Headings: headings, Text: text})
	}

	return chunks
}

// splitOversized splits chunks whose contextualized text exceeds the budget.
func (c *HybridChunker) splitOversized(chunks []Chunk) []Chunk {
	var result []Chunk
	for _, chunk := range chunks {
		if c.tokenizer.CountTokens(c.Contextualize(chunk)) <= c.maxTokens {
			result = append(result, chunk)
			continue
		}

		budget := c.maxTokens
		if len(chunk.Headings) > 0 {
			budget -= c.tokenizer.CountTokens(strings.Join(chunk.Headings, "\n") + "\n")
		}
		// Headings alone overrun the budget; keep the text within budget at least.
		if budget <= 0 {
			budget = c.maxTokens
		}

		for _, piece := range c.splitText(chunk.Text, budget, splitSeparators) {
			result = append(result, Chunk{Headings: chunk.Headings, Text: piece})
		}
	}
	return result
}

// splitText packs separator-delimited pieces greedily up to budget tokens,
// falling back to finer separators for pieces that are still too large.
func (c *HybridChunker) splitText(text string, budget int, seps []string) []string {
	if c.tokenizer.CountTokens(text) <= budget {
		return []string{text}
	}
	if len(seps) == 0 {
		return c.hardSplit(text, budget)
	}

	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		return c.splitText(text, budget, seps[1:])
	}

	var out []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	for _, part := range parts {
		if c.tokenizer.CountTokens(part) > budget {
			flush()
			out = append(out, c.splitText(strings.TrimSpace(part), budget, seps[1:])...)
			continue
		}
		if current.Len() > 0 && c.tokenizer.CountTokens(current.String()+part) > budget {
			flush()
		}
		current.WriteString(part)
	}
	flush()

	return out
}

// hardSplit cuts text by runes when no separator is left.
func (c *HybridChunker) hardSplit(text string, budget int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); {
		end := min(len(runes), start+budget*4)
		for end-start > 1 && c.tokenizer.CountTokens(string(runes[start:end])) > budget {
			end -= max(1, (end-start)/10)
		}
		out = append(out, string(runes[start:end]))
		start = end
	}
	return out
}

// merge joins adjacent chunks that share the same headings while the
// contextualized result stays within the budget.
func (c *HybridChunker) merge(chunks []Chunk) []Chunk {
	if len(chunks) == 0 {
		return chunks
	}

	result := []Chunk{chunks[0]}
	for _, next := range chunks[1:] {
		last := &result[len(result)-1]
		if slices.Equal(last.Headings, next.Headings) {
			merged := Chunk{Headings: last.Headings, Text: last.Text + "\n" + next.Text}
			if c.tokenizer.CountTokens(c.Contextualize(merged)) <= c.maxTokens {
				*last = merged
				continue
			}
		}
		result = append(result, next)
	}
	return result
}
