package index

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type cacheFile struct {
	Model   string       `json:"model"`
	Entries []cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Hash      string    `json:"hash"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// SaveCache writes every known embedding to path, tagged with the
// embedder's model.
func (ci *CommandIndex) SaveCache(path string) error {
	ci.mu.RLock()
	entries := make([]cacheEntry, 0, len(ci.known))
	for _, e := range ci.known {
		entries = append(entries, e)
	}
	ci.mu.RUnlock()

	data, err := json.Marshal(cacheFile{
		Model:   ci.embedder.Model(),
		Entries: entries,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCache loads embeddings saved by SaveCache. A cache written for a
// different model is skipped. Loaded vectors are used by the next Build.
func (ci *CommandIndex) LoadCache(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return err
	}
	if cf.Model != ci.embedder.Model() {
		return nil
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()
	for _, e := range cf.Entries {
		if e.Hash != hashText(e.Text) {
			continue
		}
		ci.known[e.Hash] = e
	}
	return nil
}
