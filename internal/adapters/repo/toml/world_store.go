// Package toml persists sandbox worlds as versioned TOML documents so a
// sandbox survives between CLI invocations.
package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/online-session-kit/internal/adapters/platform/sandbox"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	worldFileMode   = 0o600
	worldDirMode    = 0o700
	tempFilePattern = ".world-*.toml.tmp"
)

type WorldStore struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ sandbox.WorldStore = (*WorldStore)(nil)

// NewWorldStore returns a store for the document at path. Stores opened on the
// same cleaned absolute path share one lock.
func NewWorldStore(path string) (*WorldStore, error) {
	if path == "" {
		return nil, errors.New("world path is empty")
	}
	path, err := normalizeWorldPath(path)
	if err != nil {
		return nil, err
	}

	return &WorldStore{path: path, mu: lockForPath(path)}, nil
}

func (s *WorldStore) Path() string {
	return s.path
}

// Load returns the stored world. A missing file is an empty world.
func (s *WorldStore) Load(ctx context.Context) (sandbox.World, error) {
	if err := ctx.Err(); err != nil {
		return sandbox.World{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return sandbox.World{}, err
	}

	world, err := fromSchema(file)
	if err != nil {
		return sandbox.World{}, fmt.Errorf("decode world file: %w", err)
	}
	return world, nil
}

func (s *WorldStore) Save(ctx context.Context, world sandbox.World) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSchema(toSchema(world))
}

func (s *WorldStore) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read world file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode world file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *WorldStore) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), worldDirMode); err != nil {
		return fmt.Errorf("create world directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode world file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp world file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp world file: %w", err)
	}

	if err := tempFile.Chmod(worldFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp world file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp world file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace world file: %w", err)
	}

	cleanup = false
	return nil
}

func normalizeWorldPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve world path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
