package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

type codec struct {
	name      string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	jsonCodec = codec{
		name: "json_snapshot",
		marshal: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		},
		unmarshal: json.Unmarshal,
	}
	yamlCodec = codec{
		name:      "yaml_snapshot",
		marshal:   yaml.Marshal,
		unmarshal: yaml.Unmarshal,
	}
)

// FileStore keeps the ledger in a single document file.
// Saves are atomic: the document is written to path+".tmp" and renamed
// over the previous file.
type FileStore struct {
	path  string
	codec codec
}

// NewJSONStore returns a store that keeps the ledger as indented JSON.
func NewJSONStore(path string) *FileStore {
	return &FileStore{path: path, codec: jsonCodec}
}

// NewYAMLStore returns a store that keeps the ledger as YAML.
func NewYAMLStore(path string) *FileStore {
	return &FileStore{path: path, codec: yamlCodec}
}

// Path returns the document file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and restores the ledger.
func (s *FileStore) Load(ctx context.Context, opts ...ledger.Option) (*ledger.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var doc Document
	if err := s.codec.unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	l, err := doc.restore(opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("Ledger loaded", "path", s.path, "transactions", len(doc.Transactions))
	return l, nil
}

// Save writes the ledger.
func (s *FileStore) Save(ctx context.Context, l *ledger.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := s.codec.marshal(NewDocument(l.Snapshot(), s.codec.name))
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	slog.Debug("Ledger saved", "path", s.path)
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
