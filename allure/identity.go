package allure

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

const envLabelPrefix = "ALLURE_LABEL_"

// SystemIdentity discovers environment and identity labels from the running
// process. The function fields can be swapped out in tests.
type SystemIdentity struct {
	Language string
	Environ  func() []string
	Hostname func() (string, error)
	Getpid   func() int
}

// NewSystemIdentity returns an identity backed by the real process environment.
func NewSystemIdentity() *SystemIdentity {
	return &SystemIdentity{
		Language: "go",
		Environ:  os.Environ,
		Hostname: os.Hostname,
		Getpid:   os.Getpid,
	}
}

// EnvironmentLabels returns one label per ALLURE_LABEL_<NAME>=<value> variable,
// sorted by name. Values may be empty; callers filter them.
func (s *SystemIdentity) EnvironmentLabels() []Label {
	var labels []Label
	for _, kv := range s.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envLabelPrefix) {
			continue
		}
		name = strings.TrimPrefix(name, envLabelPrefix)
		if name == "" {
			continue
		}
		labels = append(labels, Label{Name: name, Value: value})
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}

func (s *SystemIdentity) LanguageLabel() Label {
	return Label{Name: LabelLanguage, Value: s.Language}
}

func (s *SystemIdentity) FrameworkLabel(framework string) Label {
	return Label{Name: LabelFramework, Value: framework}
}

// HostLabel uses ALLURE_HOST_NAME when set, the OS hostname otherwise.
func (s *SystemIdentity) HostLabel() Label {
	if v := s.lookup("ALLURE_HOST_NAME"); v != "" {
		return Label{Name: LabelHost, Value: v}
	}
	host, err := s.Hostname()
	if err != nil {
		host = "unknown"
	}
	return Label{Name: LabelHost, Value: host}
}

// ThreadLabel uses ALLURE_THREAD_NAME when set, the process id otherwise.
func (s *SystemIdentity) ThreadLabel() Label {
	if v := s.lookup("ALLURE_THREAD_NAME"); v != "" {
		return Label{Name: LabelThread, Value: v}
	}
	return Label{Name: LabelThread, Value: strconv.Itoa(s.Getpid())}
}

func (s *SystemIdentity) lookup(key string) string {
	for _, kv := range s.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok && name == key {
			return value
		}
	}
	return ""
}
