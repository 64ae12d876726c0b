package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/tansive/vaultconsole/internal/metadata"
)

const snapshotVersion = 1

type snapshotFile struct {
	Version     int                  `json:"version"`
	SavedAt     time.Time            `json:"saved_at"`
	Collections []snapshotCollection `json:"collections"`
}

type snapshotCollection struct {
	Collection
	Records json.RawMessage `json:"records"`
}

// SaveSnapshot writes every collection to path as snappy-framed JSON. The file
// is replaced atomically.
func (s *Store) SaveSnapshot(path string) error {
	s.mu.RLock()
	snap := snapshotFile{Version: snapshotVersion, SavedAt: s.now()}
	for _, k := range metadata.AllKinds() {
		c, ok := s.collections[k]
		if !ok {
			continue
		}
		raw, err := json.Marshal(c.Records)
		if err != nil {
			s.mu.RUnlock()
			return ErrSnapshot.Err(err)
		}
		snap.Collections = append(snap.Collections, snapshotCollection{Collection: *c, Records: raw})
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return ErrSnapshot.Err(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ErrSnapshot.Err(err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return ErrSnapshot.Err(err)
	}
	w := snappy.NewBufferedWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		return ErrSnapshot.Err(err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return ErrSnapshot.Err(err)
	}
	if err := f.Close(); err != nil {
		return ErrSnapshot.Err(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ErrSnapshot.Err(err)
	}
	return nil
}

// LoadSnapshot installs the collections saved at path. Kinds that already hold
// a collection keep it. A missing file is not an error.
func (s *Store) LoadSnapshot(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, ErrSnapshot.Err(err)
	}
	defer f.Close()

	data, err := io.ReadAll(snappy.NewReader(f))
	if err != nil {
		return 0, ErrSnapshot.MsgErr("snapshot is not snappy-framed", err)
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, ErrSnapshot.Err(err)
	}
	if snap.Version != snapshotVersion {
		return 0, ErrSnapshot.Msg("unsupported snapshot version")
	}

	loaded := 0
	for _, sc := range snap.Collections {
		if !sc.Kind.Valid() {
			continue
		}
		recs, err := metadata.DecodeList(sc.Kind, sc.Records)
		if err != nil {
			return loaded, ErrSnapshot.Err(err)
		}
		s.mu.Lock()
		if _, held := s.collections[sc.Kind]; !held {
			c := sc.Collection
			c.Records = recs
			s.collections[sc.Kind] = &c
			loaded++
		}
		s.mu.Unlock()
	}
	return loaded, nil
}
