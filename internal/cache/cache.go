// Package cache provides the two pieces of cross-run state: a content-hash
// manifest for incremental change detection and a keyed result store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"github.com/codeatlas/atlas/internal/fileproc"
)

// ManifestVersion guards against loading manifests written by incompatible
// releases; a mismatch is treated as a full cache miss.
const ManifestVersion = 1

// Manifest maps repository-relative file paths to content hashes. A missing
// or unreadable manifest means every file is treated as changed.
type Manifest struct {
	Version int               `json:"version"`
	Hashes  map[string]string `json:"hashes"`

	path string
}

// HashContent returns the SHA-256 of raw file bytes as a hex string. This is
// the identity used for change detection and must stay stable across runs.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadManifest reads the manifest at path. Absent or corrupt manifests
// degrade to an empty one, which reports every file as changed.
func LoadManifest(path string) *Manifest {
	m := &Manifest{
		Version: ManifestVersion,
		Hashes:  make(map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("unreadable cache manifest, treating all files as changed", "path", path, "error", err)
		}
		return m
	}

	var loaded Manifest
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Version != ManifestVersion || loaded.Hashes == nil {
		slog.Warn("corrupt or incompatible cache manifest, treating all files as changed", "path", path)
		return m
	}

	loaded.path = path
	return &loaded
}

// Changed hashes each file under root and returns the relative paths whose
// content differs from the manifest, sorted. Unreadable files count as
// changed. The manifest is updated in memory; call Save to persist.
func (m *Manifest) Changed(root string, files []string) []string {
	var changed []string
	seen := make(map[string]bool, len(files))

	hashed := fileproc.Map(files, 0, func(rel string) (string, error) {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		return HashContent(data), nil
	})

	for _, h := range hashed {
		seen[h.Path] = true
		if h.Err != nil {
			slog.Debug("unreadable file counts as changed", "path", h.Path, "error", h.Err)
			changed = append(changed, h.Path)
			delete(m.Hashes, h.Path)
			continue
		}
		if m.Hashes[h.Path] != h.Value {
			changed = append(changed, h.Path)
			m.Hashes[h.Path] = h.Value
		}
	}

	// Drop entries for files no longer present.
	for rel := range m.Hashes {
		if !seen[rel] {
			delete(m.Hashes, rel)
		}
	}

	sort.Strings(changed)
	return changed
}

// Save persists the manifest. Failures are logged, not fatal; the next run
// simply re-analyzes everything.
func (m *Manifest) Save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		slog.Warn("cannot create cache directory", "path", m.path, "error", err)
		return err
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		slog.Warn("cannot write cache manifest", "path", m.path, "error", err)
		return err
	}
	return nil
}

// Store is a keyed result cache for expensive artifacts such as a generated
// codebase map, validated by content hash.
type Store struct {
	dir     string
	enabled bool
}

// entry is the on-disk envelope for one stored artifact.
type entry struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// NewStore creates a result store rooted at dir. A disabled store accepts
// all calls and never hits.
func NewStore(dir string, enabled bool) (*Store, error) {
	if !enabled {
		return &Store{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, enabled: true}, nil
}

// Get returns the stored artifact for key if its hash matches.
func (s *Store) Get(key, hash string) ([]byte, bool) {
	if !s.enabled {
		return nil, false
	}

	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Hash != hash {
		return nil, false
	}
	return e.Data, true
}

// Set stores an artifact under key, tagged with hash.
func (s *Store) Set(key, hash string, data []byte) error {
	if !s.enabled {
		return nil
	}

	raw, err := json.Marshal(entry{Hash: hash, Timestamp: time.Now(), Data: data})
	if err != nil {
		return err
	}
	return os.WriteFile(s.keyPath(key), raw, 0600)
}

// Clear removes all stored artifacts.
func (s *Store) Clear() error {
	if !s.enabled {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// keyPath hashes the key so arbitrary strings map to safe filenames.
func (s *Store) keyPath(key string) string {
	sum := blake3.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
