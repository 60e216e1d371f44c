package chunker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"chunkrelay/internal/convert"
)

// ChunkSplitter marks the start of every chunk in a serialized artifact.
const ChunkSplitter = "HYBRID_CHUNK_SPLITTER"

// Serializer writes chunked documents as a single markdown artifact.
type Serializer struct {
	chunker *HybridChunker
}

// NewSerializer creates a serializer backed by chunker.
func NewSerializer(chunker *HybridChunker) *Serializer {
	return &Serializer{chunker: chunker}
}

// Write chunks doc and writes each chunk as marker, blank line, contextualized
// text, blank line. It returns the number of chunks written.
func (s *Serializer) Write(w io.Writer, doc *convert.Document) (int, error) {
	bw := bufio.NewWriter(w)
	chunks := s.chunker.Chunk(doc)
	for _, chunk := range chunks {
		if _, err := fmt.Fprintf(bw, "%s\n\n%s\n\n", ChunkSplitter, s.chunker.Contextualize(chunk)); err != nil {
			return 0, fmt.Errorf("failed to write chunk %d: %w", chunk.Index, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush artifact: %w", err)
	}
	return len(chunks), nil
}

// WriteTempFile serializes doc into a new temp file in dir.
// On error or panic nothing is left behind and the returned path is empty.
func (s *Serializer) WriteTempFile(dir string, doc *convert.Document) (path string, n int, err error) {
	f, err := os.CreateTemp(dir, "chunks-*.md")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer func() {
		if path == "" {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	n, err = s.Write(f, doc)
	if err != nil {
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close artifact file: %w", err)
	}
	return f.Name(), n, nil
}

// Split recovers chunk texts from a serialized artifact, in order.
func Split(artifact string) []string {
	parts := strings.Split(artifact, ChunkSplitter+"\n\n")
	if len(parts) <= 1 {
		return nil
	}
	chunks := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		chunks = append(chunks, strings.TrimSuffix(part, "\n\n"))
	}
	return chunks
}
