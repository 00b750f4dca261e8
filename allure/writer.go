package allure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultResultsDir is where results are written when nothing else is configured.
const DefaultResultsDir = "allure-results"

// Writer persists finished records. Implementations own the on-disk layout.
type Writer interface {
	WriteResult(result *TestResult) error
	WriteContainer(container *TestResultContainer) error
	WriteEnvironmentInfo(info map[string]string) error
	WriteCategories(categories []Category) error
}

// FileWriter writes records as JSON files into an allure-results directory.
type FileWriter struct {
	dir    string
	logger *zap.Logger
	once   sync.Once
	mkErr  error
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithWriterLogger attaches a logger to the writer.
func WithWriterLogger(l *zap.Logger) FileWriterOption {
	return func(w *FileWriter) {
		w.logger = l
	}
}

// NewFileWriter creates a writer for dir. The directory is created on first write.
func NewFileWriter(dir string, opts ...FileWriterOption) *FileWriter {
	if dir == "" {
		dir = DefaultResultsDir
	}
	w := &FileWriter{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the results directory.
func (w *FileWriter) Dir() string {
	return w.dir
}

// Clean removes previously written results from the directory.
func (w *FileWriter) Clean() error {
	entries, err := os.ReadDir(w.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading results dir %s", w.dir)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isResultFile(name) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil {
			return errors.Wrapf(err, "removing %s", name)
		}
	}
	return nil
}

func isResultFile(name string) bool {
	return strings.HasSuffix(name, "-result.json") ||
		strings.HasSuffix(name, "-container.json") ||
		name == "environment.properties" ||
		name == "categories.json"
}

func (w *FileWriter) WriteResult(result *TestResult) error {
	return w.writeJSON(result.UUID+"-result.json", result)
}

func (w *FileWriter) WriteContainer(container *TestResultContainer) error {
	return w.writeJSON(container.UUID+"-container.json", container)
}

// WriteEnvironmentInfo writes environment.properties with keys in sorted order.
func (w *FileWriter) WriteEnvironmentInfo(info map[string]string) error {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", escapeProperty(k), escapeProperty(info[k]))
	}
	return w.writeFile("environment.properties", []byte(b.String()))
}

func (w *FileWriter) WriteCategories(categories []Category) error {
	return w.writeJSON("categories.json", categories)
}

func (w *FileWriter) writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", name)
	}
	return w.writeFile(name, data)
}

func (w *FileWriter) writeFile(name string, data []byte) error {
	w.once.Do(func() {
		w.mkErr = os.MkdirAll(w.dir, 0o755)
	})
	if w.mkErr != nil {
		return errors.Wrapf(w.mkErr, "creating results dir %s", w.dir)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	w.logger.Debug("wrote allure file", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func escapeProperty(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "=", `\=`, ":", `\:`)
	return r.Replace(s)
}

// MemoryWriter keeps records in memory. It is safe for concurrent use.
type MemoryWriter struct {
	mu              sync.Mutex
	Results         []*TestResult
	Containers      []*TestResultContainer
	EnvironmentInfo map[string]string
	Categories      []Category
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (m *MemoryWriter) WriteResult(result *TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, result)
	return nil
}

func (m *MemoryWriter) WriteContainer(container *TestResultContainer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers = append(m.Containers, container)
	return nil
}

func (m *MemoryWriter) WriteEnvironmentInfo(info map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnvironmentInfo = info
	return nil
}

func (m *MemoryWriter) WriteCategories(categories []Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Categories = categories
	return nil
}
