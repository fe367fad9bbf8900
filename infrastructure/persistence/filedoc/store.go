// Package filedoc persists parameter and case documents as YAML or JSON
// files in a flat directory. Documents are identified by file name without
// extension; the extension chosen at first save is kept on rewrite.
package filedoc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"flowsync-core/domain/documents"
	pkgerrors "flowsync-core/pkg/errors"
)

var extensions = []string{".yaml", ".yml", ".json"}

// Store reads and writes document files under a single directory
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store over dir, creating the directory if needed
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Load reads the document with the given id, trying each known extension
func (s *Store) Load(id string) (documents.Document, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return decode(path, data)
}

// LoadPath reads the document at an explicit path, e.g. one reported by the
// directory watcher.
func (s *Store) LoadPath(path string) (documents.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NewNotFoundError("document " + path)
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return decode(path, data)
}

// Save writes the document, keeping the existing file's format or defaulting
// to YAML for new documents. The write goes through a temp file and rename
// so a concurrent reader never sees a half-written document.
func (s *Store) Save(id string, doc documents.Document) error {
	path, err := s.resolve(id)
	if err != nil {
		path = filepath.Join(s.dir, id+".yaml")
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save document %s: %w", id, err)
	}

	s.logger.Debug("document saved", zap.String("id", id), zap.String("path", path))
	return nil
}

// Delete removes the document file
func (s *Store) Delete(id string) error {
	path, err := s.resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	s.logger.Info("document deleted", zap.String("id", id))
	return nil
}

// List returns the ids of every document in the directory, sorted
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		for _, known := range extensions {
			if ext == known {
				ids = append(ids, strings.TrimSuffix(name, filepath.Ext(name)))
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ID derives the document id from a file path inside the store
func (s *Store) ID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *Store) resolve(id string) (string, error) {
	if strings.ContainsAny(id, "/\\") {
		return "", pkgerrors.NewValidationError("document id must not contain path separators")
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", pkgerrors.NewNotFoundError("document " + id)
}

func decode(path string, data []byte) (documents.Document, error) {
	doc := documents.Document{}
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("document %s is not valid: %v", filepath.Base(path), err))
	}
	return doc, nil
}
