package allure

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ScopeID identifies an open container.
type ScopeID string

// TestID identifies an open test record.
type TestID string

// ErrUnknownHandle is returned when a scope or test id is not open.
var ErrUnknownHandle = errors.New("unknown allure handle")

// Runtime tracks open scopes and test records and hands finished ones to a Writer.
// It is not safe for concurrent use; callers deliver operations serially.
type Runtime struct {
	writer  Writer
	logger  *zap.Logger
	now     func() time.Time
	newUUID func() string

	scopes map[ScopeID]*TestResultContainer
	tests  map[TestID]*TestResult
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger attaches a logger to the runtime.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithClock replaces the wall clock used for start/stop timestamps.
func WithClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) {
		r.now = now
	}
}

// WithUUIDGenerator replaces the uuid source.
func WithUUIDGenerator(gen func() string) RuntimeOption {
	return func(r *Runtime) {
		r.newUUID = gen
	}
}

// NewRuntime creates a runtime that persists through w.
func NewRuntime(w Writer, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		writer:  w,
		logger:  zap.NewNop(),
		now:     time.Now,
		newUUID: func() string { return uuid.New().String() },
		scopes:  make(map[ScopeID]*TestResultContainer),
		tests:   make(map[TestID]*TestResult),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartScope opens a new container.
func (r *Runtime) StartScope() ScopeID {
	id := ScopeID(r.newUUID())
	r.scopes[id] = &TestResultContainer{
		UUID:     string(id),
		Children: []string{},
		Befores:  []any{},
		Afters:   []any{},
		Start:    r.millis(),
	}
	r.logger.Debug("scope started", zap.String("scope", string(id)))
	return id
}

// StartTest opens a test record from draft and registers it as a child of
// every scope in scopes.
func (r *Runtime) StartTest(draft TestResult, scopes []ScopeID) (TestID, error) {
	for _, s := range scopes {
		if _, ok := r.scopes[s]; !ok {
			return "", errors.Wrapf(ErrUnknownHandle, "scope %s", s)
		}
	}

	result := draft
	result.UUID = r.newUUID()
	if result.Start == 0 {
		result.Start = r.millis()
	}
	if result.TestCaseID == "" && result.FullName != "" {
		result.TestCaseID = md5Hex(result.FullName)
	}
	if result.HistoryID == "" && result.TestCaseID != "" {
		result.HistoryID = md5Hex(result.TestCaseID + ":" + md5Hex(parametersKey(result.Parameters)))
	}
	result.Labels = nonNil(result.Labels)
	result.Links = nonNil(result.Links)
	result.Parameters = nonNil(result.Parameters)
	result.Attachments = nonNil(result.Attachments)
	result.Steps = nonNil(result.Steps)

	for _, s := range scopes {
		c := r.scopes[s]
		c.Children = append(c.Children, result.UUID)
	}

	id := TestID(result.UUID)
	r.tests[id] = &result
	r.logger.Debug("test started", zap.String("test", result.UUID), zap.String("name", result.Name))
	return id, nil
}

// UpdateTest applies fn to an open test record.
func (r *Runtime) UpdateTest(id TestID, fn func(*TestResult)) error {
	t, ok := r.tests[id]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "test %s", id)
	}
	fn(t)
	return nil
}

// StopTest stamps the stop time unless one was already set.
func (r *Runtime) StopTest(id TestID) error {
	t, ok := r.tests[id]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "test %s", id)
	}
	if t.Stop == 0 {
		t.Stop = r.millis()
	}
	return nil
}

// WriteTest persists a test record and forgets it. A record that failed to
// write stays open and can be written again.
func (r *Runtime) WriteTest(id TestID) error {
	t, ok := r.tests[id]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "test %s", id)
	}
	if err := r.writer.WriteResult(t); err != nil {
		return errors.Wrapf(err, "writing test %s", id)
	}
	delete(r.tests, id)
	return nil
}

// WriteScope stamps, persists and forgets a container. Like WriteTest, it
// keeps the container open when the write fails.
func (r *Runtime) WriteScope(id ScopeID) error {
	c, ok := r.scopes[id]
	if !ok {
		return errors.Wrapf(ErrUnknownHandle, "scope %s", id)
	}
	if c.Stop == 0 {
		c.Stop = r.millis()
	}
	if err := r.writer.WriteContainer(c); err != nil {
		return errors.Wrapf(err, "writing scope %s", id)
	}
	delete(r.scopes, id)
	return nil
}

// OpenScopes reports how many containers have not been written yet.
func (r *Runtime) OpenScopes() int {
	return len(r.scopes)
}

// OpenTests reports how many test records have not been written yet.
func (r *Runtime) OpenTests() int {
	return len(r.tests)
}

func (r *Runtime) millis() int64 {
	return r.now().UnixMilli()
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func parametersKey(params []Parameter) string {
	var b strings.Builder
	for _, p := range params {
		if p.Excluded {
			continue
		}
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(p.Value)
		b.WriteByte(',')
	}
	return b.String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
