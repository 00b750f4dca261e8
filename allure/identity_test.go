package allure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeIdentity(env ...string) *SystemIdentity {
	return &SystemIdentity{
		Language: "go",
		Environ:  func() []string { return env },
		Hostname: func() (string, error) { return "buildbox", nil },
		Getpid:   func() int { return 4242 },
	}
}

func TestSystemIdentity_EnvironmentLabels(t *testing.T) {
	id := fakeIdentity("PATH=/bin", "ALLURE_LABEL_owner=alice", "ALLURE_LABEL_epic=", "ALLURE_LABEL_=x", "ALLURE_LABEL_layer=api")

	assert.Equal(t, []Label{
		{Name: "epic", Value: ""},
		{Name: "layer", Value: "api"},
		{Name: "owner", Value: "alice"},
	}, id.EnvironmentLabels())
}

func TestSystemIdentity_IdentityLabels(t *testing.T) {
	id := fakeIdentity()

	assert.Equal(t, Label{Name: LabelLanguage, Value: "go"}, id.LanguageLabel())
	assert.Equal(t, Label{Name: LabelFramework, Value: "gotest"}, id.FrameworkLabel("gotest"))
	assert.Equal(t, Label{Name: LabelHost, Value: "buildbox"}, id.HostLabel())
	assert.Equal(t, Label{Name: LabelThread, Value: "4242"}, id.ThreadLabel())
}

func TestSystemIdentity_Overrides(t *testing.T) {
	id := fakeIdentity("ALLURE_HOST_NAME=ci-7", "ALLURE_THREAD_NAME=worker-2")

	assert.Equal(t, "ci-7", id.HostLabel().Value)
	assert.Equal(t, "worker-2", id.ThreadLabel().Value)
}

func TestSystemIdentity_HostnameError(t *testing.T) {
	id := fakeIdentity()
	id.Hostname = func() (string, error) { return "", errors.New("no host") }

	assert.Equal(t, "unknown", id.HostLabel().Value)
}
