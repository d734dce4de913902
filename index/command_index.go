package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	glance "github.com/Paranoid-AF/glance"
)

const indexBatchSize = 32

// Vectorizer turns text into embeddings.
type Vectorizer interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CommandIndex is an HNSW graph over command text, keyed by command ID.
type CommandIndex struct {
	embedder Vectorizer

	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	// known maps a hash of embedded text to its vector so rebuilding after
	// a catalog change only embeds new or edited commands.
	known map[string]cacheEntry
}

// NewCommandIndex creates an empty index that embeds through e.
func NewCommandIndex(e Vectorizer) *CommandIndex {
	return &CommandIndex{
		embedder: e,
		graph:    hnsw.NewGraph[string](),
		known:    make(map[string]cacheEntry),
	}
}

// Len returns the number of indexed commands.
func (ci *CommandIndex) Len() int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.graph.Len()
}

// Build replaces the index with commands. Commands whose text was embedded
// before reuse the stored vector. A batch that fails to embed leaves its
// commands out of the index.
func (ci *CommandIndex) Build(ctx context.Context, commands []glance.Command) error {
	texts := make([]string, len(commands))
	hashes := make([]string, len(commands))
	var missing []int

	ci.mu.RLock()
	for i, cmd := range commands {
		texts[i] = CommandText(cmd)
		hashes[i] = hashText(texts[i])
		if _, ok := ci.known[hashes[i]]; !ok {
			missing = append(missing, i)
		}
	}
	ci.mu.RUnlock()

	fresh := make(map[string]cacheEntry, len(missing))
	var firstErr error
	for start := 0; start < len(missing); start += indexBatchSize {
		end := min(start+indexBatchSize, len(missing))
		batch := missing[start:end]

		input := make([]string, len(batch))
		for j, i := range batch {
			input[j] = texts[i]
		}
		vectors, err := ci.embedder.EmbedBatch(ctx, input)
		if err != nil {
			slog.Error("batch embed error", "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for j, i := range batch {
			fresh[hashes[i]] = cacheEntry{Hash: hashes[i], Text: texts[i], Embedding: vectors[j]}
		}
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()
	for k, v := range fresh {
		ci.known[k] = v
	}
	graph := hnsw.NewGraph[string]()
	nodes := make([]hnsw.Node[string], 0, len(commands))
	for i, cmd := range commands {
		entry, ok := ci.known[hashes[i]]
		if !ok {
			continue
		}
		nodes = append(nodes, hnsw.MakeNode(cmd.ID, entry.Embedding))
	}
	if len(nodes) > 0 {
		graph.Add(nodes...)
	}
	ci.graph = graph
	slog.Debug("command index built", "commands", len(nodes), "embedded", len(fresh))

	if firstErr != nil {
		return fmt.Errorf("embed commands: %w", firstErr)
	}
	return nil
}

// Nearest returns the IDs of the k commands closest in meaning to text,
// closest first. text is redacted before it is embedded.
func (ci *CommandIndex) Nearest(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 || ci.Len() == 0 {
		return nil, nil
	}
	vec, err := ci.embedder.Embed(ctx, Redact(text))
	if err != nil {
		return nil, err
	}

	ci.mu.RLock()
	defer ci.mu.RUnlock()
	neighbors := ci.graph.Search(vec, k)
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
	}
	return ids, nil
}

// CommandText is the text embedded for cmd.
func CommandText(cmd glance.Command) string {
	parts := []string{cmd.Label}
	if cmd.Description != "" {
		parts = append(parts, cmd.Description)
	}
	if len(cmd.Keywords) > 0 {
		parts = append(parts, strings.Join(cmd.Keywords, ", "))
	}
	return strings.Join(parts, ". ")
}

func hashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
