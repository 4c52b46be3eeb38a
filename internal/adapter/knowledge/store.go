// Package knowledge keeps per-crop knowledge records as JSON files named
// knowledge_core_<crop>.json. Records are read on every request, so protocols
// added at runtime or files dropped in by an operator take effect without a
// restart.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// Store is a file-backed domain.KnowledgeSource.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewStore creates a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Path is the file that holds crop's record. Names that could leave the
// store directory are rejected as unknown crops.
func (s *Store) Path(crop string) (string, error) {
	name := strings.ToLower(domain.CanonicalCrop(crop))
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", &domain.UnknownCropError{Crop: crop}
	}
	return filepath.Join(s.dir, "knowledge_core_"+name+".json"), nil
}

func (s *Store) Get(_ context.Context, crop string) (domain.Knowledge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(crop)
}

// AddProtocol stores p under id in crop's record. An id already in use is
// left alone and reported as domain.ErrProtocolExists.
func (s *Store) AddProtocol(_ context.Context, crop, id string, p domain.DiseaseProtocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, err := s.read(crop)
	if err != nil {
		return err
	}
	if _, ok := k.DiseaseProtocols[id]; ok {
		return fmt.Errorf("add protocol %s for %s: %w", id, crop, domain.ErrProtocolExists)
	}
	k.DiseaseProtocols[id] = p
	if err := s.write(crop, k); err != nil {
		return err
	}
	s.logger.Info("disease protocol added", "crop", crop, "id", id, "disease", p.Name)
	return nil
}

// Put writes a full record for crop, replacing the existing file.
func (s *Store) Put(_ context.Context, crop string, k domain.Knowledge) error {
	if err := k.Validate(); err != nil {
		return fmt.Errorf("validate knowledge for %s: %w", crop, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(crop, k)
}

// Bootstrap writes the built-in record for every calendar crop that has no
// file yet and returns the crops it wrote. Existing files are left alone.
func (s *Store) Bootstrap(ctx context.Context, calendar domain.Calendar, risks *domain.RiskModel) ([]string, error) {
	var written []string
	for _, crop := range calendar.Crops() {
		path, err := s.Path(crop)
		if err != nil {
			return written, err
		}
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("stat knowledge for %s: %w", crop, err)
		}

		k, err := domain.DefaultKnowledge(calendar, risks, crop)
		if errors.Is(err, domain.ErrKnowledgeMissing) {
			s.logger.Debug("no default knowledge", "crop", crop)
			continue
		}
		if err != nil {
			return written, fmt.Errorf("build knowledge for %s: %w", crop, err)
		}
		if err := s.Put(ctx, crop, k); err != nil {
			return written, err
		}
		written = append(written, crop)
	}
	if len(written) > 0 {
		s.logger.Info("knowledge bootstrapped", "dir", s.dir, "crops", written)
	}
	return written, nil
}

func (s *Store) read(crop string) (domain.Knowledge, error) {
	path, err := s.Path(crop)
	if err != nil {
		return domain.Knowledge{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Knowledge{}, &domain.KnowledgeMissingError{Crop: crop}
	}
	if err != nil {
		return domain.Knowledge{}, fmt.Errorf("read knowledge for %s: %w", crop, err)
	}

	var k domain.Knowledge
	if err := json.Unmarshal(data, &k); err != nil {
		return domain.Knowledge{}, fmt.Errorf("decode knowledge for %s: %w", crop, err)
	}
	if len(k.LifecyclePhases) == 0 {
		return domain.Knowledge{}, &domain.KnowledgeMissingError{Crop: crop}
	}
	if k.DiseaseProtocols == nil {
		k.DiseaseProtocols = map[string]domain.DiseaseProtocol{}
	}
	return k, nil
}

// write replaces the file through a rename so readers never see a partial
// record.
func (s *Store) write(crop string, k domain.Knowledge) error {
	path, err := s.Path(crop)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create knowledge dir: %w", err)
	}
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge for %s: %w", crop, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".knowledge-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write knowledge for %s: %w", crop, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace knowledge for %s: %w", crop, err)
	}
	return nil
}
