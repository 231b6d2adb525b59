package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnb-chain/proof-relayer/types"
	"github.com/bnb-chain/proof-relayer/util"
)

// FileStore keeps the marker as decimal text in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewFileStoreForKind places the file of kind under dir.
func NewFileStoreForKind(dir string, kind Kind) *FileStore {
	return NewFileStore(filepath.Join(dir, types.CheckpointFileName(kind.Name())))
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (uint64, error) {
	bz, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
		if err = os.MkdirAll(filepath.Dir(s.path), os.ModePerm); err != nil {
			return 0, err
		}
		return 0, s.Save(0)
	}
	content := strings.TrimSpace(string(bz))
	if content == "" {
		return 0, nil
	}
	value, err := util.StringToUint64(content)
	if err != nil {
		return 0, fmt.Errorf("invalid checkpoint file %s: %w", s.path, err)
	}
	return value, nil
}

// Save writes a temp file next to the target and renames it over the target, so readers see
// either the old or the new value.
func (s *FileStore) Save(value uint64) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err = tmp.WriteString(util.Uint64ToString(value)); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
