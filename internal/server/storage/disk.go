package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/leftoverchef/internal/filex"
)

// DiskStore keeps images in a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DiskStore{dir: abs}, nil
}

func (s *DiskStore) Name() string { return "disk" }

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(_ context.Context, name, _ string, data []byte) error {
	if err := ValidName(name); err != nil {
		return err
	}
	// never overwrite an existing image
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write image: %w", err)
	}
	return f.Close()
}

func (s *DiskStore) Delete(_ context.Context, name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	_, err := filex.RemoveIfExists(filepath.Join(s.dir, name))
	return err
}

func (s *DiskStore) Serve(w http.ResponseWriter, r *http.Request, name string) {
	if ValidName(name) != nil {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.dir, name)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
