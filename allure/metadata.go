package allure

import (
	"fmt"
	"regexp"
	"strings"
)

// annotationPattern matches inline title annotations such as
// "@allure.label.owner:alice", "allure.id=42" or `@allure.tag:"slow path"`.
// An annotation starts the title or follows whitespace, so "user@allure.id:5"
// is plain text.
var annotationPattern = regexp.MustCompile("(?:^|\\s)@?allure\\.([^:=\\s]+)[:=](\"[^\"]*\"|'[^']*'|`[^`]*`|\\S+)")

// Metadata is what ExtractMetadata found in a title.
type Metadata struct {
	CleanTitle string
	Labels     []Label
	Links      []Link
}

// LinkTemplate expands a bare link value into a URL and an optional name.
// Each template must contain a single %s verb, e.g.
// "https://jira.example.com/browse/%s".
type LinkTemplate struct {
	URLTemplate  string `yaml:"urlTemplate"`
	NameTemplate string `yaml:"nameTemplate,omitempty"`
}

// ExtractMetadata parses annotations out of title. It never fails: a title
// without annotations comes back unchanged with no labels or links.
func ExtractMetadata(title string) Metadata {
	md := Metadata{CleanTitle: title}
	matches := annotationPattern.FindAllStringSubmatchIndex(title, -1)
	if len(matches) == 0 {
		return md
	}

	for _, m := range matches {
		subject := title[m[2]:m[3]]
		value := unquote(title[m[4]:m[5]])

		switch {
		case subject == "id":
			md.Labels = append(md.Labels, Label{Name: LabelAllureID, Value: value})
		case subject == LabelTag:
			md.Labels = append(md.Labels, Label{Name: LabelTag, Value: value})
		case subject == LinkIssue, subject == LinkTMS:
			md.Links = append(md.Links, Link{Type: subject, URL: value})
		case subject == "link":
			md.Links = append(md.Links, Link{URL: value})
		case strings.HasPrefix(subject, "label."):
			md.Labels = append(md.Labels, Label{Name: strings.TrimPrefix(subject, "label."), Value: value})
		case strings.HasPrefix(subject, "link."):
			md.Links = append(md.Links, Link{Type: strings.TrimPrefix(subject, "link."), URL: value})
		default:
			// unknown subjects stay in the title
			continue
		}
	}

	md.CleanTitle = strings.Join(strings.Fields(annotationPattern.ReplaceAllStringFunc(title, func(s string) string {
		sub := annotationPattern.FindStringSubmatch(s)
		if isKnownSubject(sub[1]) {
			return " "
		}
		return s
	})), " ")
	return md
}

func isKnownSubject(subject string) bool {
	switch subject {
	case "id", LabelTag, LinkIssue, LinkTMS, "link":
		return true
	}
	return strings.HasPrefix(subject, "label.") || strings.HasPrefix(subject, "link.")
}

func unquote(v string) string {
	if len(v) >= 2 {
		switch v[0] {
		case '"', '\'', '`':
			if v[len(v)-1] == v[0] {
				return v[1 : len(v)-1]
			}
		}
	}
	return v
}

// ApplyLinkTemplates fills in URLs (and names) of links whose type has a
// configured template and whose value is not already an absolute URL.
func ApplyLinkTemplates(links []Link, templates map[string]LinkTemplate) []Link {
	if len(templates) == 0 {
		return links
	}
	out := make([]Link, len(links))
	for i, l := range links {
		out[i] = l
		tpl, ok := templates[l.Type]
		if !ok || isURL(l.URL) {
			continue
		}
		if tpl.URLTemplate != "" {
			out[i].URL = fmt.Sprintf(tpl.URLTemplate, l.URL)
		}
		if tpl.NameTemplate != "" && l.Name == "" {
			out[i].Name = fmt.Sprintf(tpl.NameTemplate, l.URL)
		}
	}
	return out
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
