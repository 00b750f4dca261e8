// Package config loads the .tallure.yaml configuration file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ansel1/tallure/allure"
	"github.com/ansel1/tallure/reporter"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = ".tallure.yaml"

// Defaults for the go test host.
const (
	DefaultTestFramework = "gotest"
	DefaultSkipTrace     = "Test execution was skipped by t.Skip or t.SkipNow"
)

// Config is the content of .tallure.yaml.
type Config struct {
	ResultsDir           string                         `yaml:"resultsDir"`
	CleanResultsDir      bool                           `yaml:"cleanResultsDir"`
	RuntimeName          string                         `yaml:"runtimeName,omitempty"`
	RestoreSubtestSpaces bool                           `yaml:"restoreSubtestSpaces"`
	CustomOptions        CustomOptions                  `yaml:"customOptions"`
	Links                map[string]allure.LinkTemplate `yaml:"links,omitempty"`
	EnvironmentInfo      map[string]string              `yaml:"environmentInfo,omitempty"`
	Categories           []allure.Category              `yaml:"categories,omitempty"`
}

// CustomOptions tune how records are labelled.
type CustomOptions struct {
	ProjectLanguage  string          `yaml:"projectLanguage,omitempty"`
	TestFramework    string          `yaml:"testFramework,omitempty"`
	SkipTrace        string          `yaml:"skipTrace,omitempty"`
	PackageLabel     *reporter.Affix `yaml:"packageLabel,omitempty"`
	ParentSuiteLabel *reporter.Affix `yaml:"parentSuiteLabel,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ResultsDir:           allure.DefaultResultsDir,
		RestoreSubtestSpaces: true,
		CustomOptions: CustomOptions{
			TestFramework: DefaultTestFramework,
			SkipTrace:     DefaultSkipTrace,
		},
	}
}

// Load reads the config at path. An empty path means DefaultFileName in the
// working directory, and a missing default file yields Default(). A missing
// explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default(). Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ResultsDir) == "" {
		return fmt.Errorf("resultsDir must not be empty")
	}
	for name, tpl := range c.Links {
		if tpl.URLTemplate != "" && strings.Count(tpl.URLTemplate, "%s") != 1 {
			return fmt.Errorf("links.%s.urlTemplate must contain exactly one %%s", name)
		}
		if tpl.NameTemplate != "" && strings.Count(tpl.NameTemplate, "%s") != 1 {
			return fmt.Errorf("links.%s.nameTemplate must contain exactly one %%s", name)
		}
	}
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("categories[%d] has no name", i)
		}
		for _, re := range []string{cat.MessageRegex, cat.TraceRegex} {
			if _, err := regexp.Compile(re); err != nil {
				return fmt.Errorf("categories[%d] %q: %w", i, cat.Name, err)
			}
		}
	}
	return nil
}

// ReporterOptions converts the config into coordinator options.
func (c *Config) ReporterOptions() reporter.Options {
	return reporter.Options{
		ProjectLanguage:  c.CustomOptions.ProjectLanguage,
		TestFramework:    c.CustomOptions.TestFramework,
		PackageLabel:     c.CustomOptions.PackageLabel,
		ParentSuiteLabel: c.CustomOptions.ParentSuiteLabel,
		SkipTrace:        c.CustomOptions.SkipTrace,
		LinkTemplates:    c.Links,
	}
}
