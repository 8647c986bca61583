package tsdb

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

// Persistence handles the disk I/O for the MemStore. One JSON file per
// namespace.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // protects concurrent writes to the filesystem
}

// NewPersistence initializes a persistence handler, creating the data
// directory if needed.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

// SaveNamespace writes a single namespace's data to a JSON file atomically:
// write to a temp file, then rename, so a crash leaves either the old file or
// the new one, never a corrupt one.
func (p *Persistence) SaveNamespace(namespace string, data map[string][]models.Point) error {
	if !SafeNamespaceName(namespace) {
		return fmt.Errorf("unsafe namespace name %q", namespace)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := filepath.Join(p.DataDir, fmt.Sprintf("%s.json", namespace))
	tempPath := filePath + ".tmp"

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, b, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, filePath)
}

// LoadAll returns all namespace data found in the data directory. Unreadable
// or corrupt files are skipped with a warning rather than failing startup.
func (p *Persistence) LoadAll() (map[string]map[string][]models.Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allData := make(map[string]map[string][]models.Point)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		namespace := file.Name()[:len(file.Name())-len(".json")]

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			log.Printf("Warning: could not read namespace file %s: %v", file.Name(), err)
			continue
		}

		var nsData map[string][]models.Point
		if err := json.Unmarshal(content, &nsData); err != nil {
			log.Printf("Warning: could not unmarshal namespace data from %s: %v", file.Name(), err)
			continue
		}
		allData[namespace] = nsData
	}
	return allData, nil
}
