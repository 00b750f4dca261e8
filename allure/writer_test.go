package allure

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriter_WritesResultAndContainer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "allure-results")
	w := NewFileWriter(dir)

	require.NoError(t, w.WriteResult(&TestResult{UUID: "t1", Name: "should pass", Status: StatusPassed, Stage: StageFinished}))
	require.NoError(t, w.WriteContainer(&TestResultContainer{UUID: "c1", Children: []string{"t1"}}))

	data, err := os.ReadFile(filepath.Join(dir, "t1-result.json"))
	require.NoError(t, err)
	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "should pass", result.Name)
	assert.Equal(t, StatusPassed, result.Status)
	assert.Equal(t, StageFinished, result.Stage)

	data, err = os.ReadFile(filepath.Join(dir, "c1-container.json"))
	require.NoError(t, err)
	var container TestResultContainer
	require.NoError(t, json.Unmarshal(data, &container))
	assert.Equal(t, []string{"t1"}, container.Children)
}

func TestFileWriter_EnvironmentAndCategories(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)

	require.NoError(t, w.WriteEnvironmentInfo(map[string]string{"os": "linux", "go.version": "1.25", "url": "http://x:1"}))
	require.NoError(t, w.WriteCategories([]Category{{Name: "Timeouts", MessageRegex: ".*timeout.*", MatchedStatuses: []Status{StatusFailed}}}))

	props, err := os.ReadFile(filepath.Join(dir, "environment.properties"))
	require.NoError(t, err)
	assert.Equal(t, "go.version=1.25\nos=linux\nurl=http\\://x\\:1\n", string(props))

	cats, err := os.ReadFile(filepath.Join(dir, "categories.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Timeouts","messageRegex":".*timeout.*","matchedStatuses":["failed"]}]`, string(cats))
}

func TestFileWriter_Clean(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)
	require.NoError(t, w.WriteResult(&TestResult{UUID: "old"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	require.NoError(t, w.Clean())

	assert.NoFileExists(t, filepath.Join(dir, "old-result.json"))
	assert.FileExists(t, filepath.Join(dir, "keep.txt"))
}

func TestFileWriter_CleanMissingDir(t *testing.T) {
	w := NewFileWriter(filepath.Join(t.TempDir(), "missing"))
	assert.NoError(t, w.Clean())
}

func TestFileWriter_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	w := NewFileWriter(filepath.Join(file, "results"))
	err := w.WriteResult(&TestResult{UUID: "t1"})
	assert.ErrorContains(t, err, "creating results dir")
}

func TestNewFileWriter_DefaultDir(t *testing.T) {
	assert.Equal(t, DefaultResultsDir, NewFileWriter("").Dir())
}
