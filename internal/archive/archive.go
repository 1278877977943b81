// Package archive persists one self-contained JSON result document per
// completed crawl task. These documents are the service's only durable
// state: analytics endpoints read the most recently written one.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

const (
	filePrefix = "crawler_result_"
	fileSuffix = ".json"
)

// Store reads and writes result documents under a single output directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates the output directory if needed and returns a Store.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", root, err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Save writes the document for a task, overwriting any previous write for
// the same task id.
func (s *Store) Save(taskID string, doc *crawler.ResultDocument) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result document: %w", err)
	}
	target := s.path(taskID)
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write result document %s: %w", target, err)
	}
	s.logger.Info("result document saved", zap.String("task_id", taskID), zap.String("path", target))
	return nil
}

// Load reads the document for one task id.
func (s *Store) Load(taskID string) (*crawler.ResultDocument, error) {
	payload, err := os.ReadFile(s.path(taskID))
	if err != nil {
		return nil, fmt.Errorf("read result document: %w", err)
	}
	var doc crawler.ResultDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode result document: %w", err)
	}
	return &doc, nil
}

// Latest returns the most recently modified result document. The most
// recent write wins as the dataset for analytics reads; ok=false when no
// document exists yet.
func (s *Store) Latest() (*crawler.ResultDocument, bool, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, false, fmt.Errorf("list output dir: %w", err)
	}
	var newestPath string
	var newestMod int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newestPath == "" || mod > newestMod {
			newestPath = filepath.Join(s.root, name)
			newestMod = mod
		}
	}
	if newestPath == "" {
		return nil, false, nil
	}
	payload, err := os.ReadFile(newestPath)
	if err != nil {
		return nil, false, fmt.Errorf("read result document: %w", err)
	}
	var doc crawler.ResultDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, false, fmt.Errorf("decode result document %s: %w", newestPath, err)
	}
	return &doc, true, nil
}

func (s *Store) path(taskID string) string {
	return filepath.Join(s.root, filePrefix+taskID+fileSuffix)
}
