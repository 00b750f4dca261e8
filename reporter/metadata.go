package reporter

import "github.com/ansel1/tallure/allure"

// Metadata is the typed result of pulling annotations out of a test title.
type Metadata struct {
	CleanTitle string
	Labels     []allure.Label
	Links      []allure.Link
}

// ExtractMetadata hands title to the shared allure annotation parser and
// passes its output through untouched.
func ExtractMetadata(title string) Metadata {
	md := allure.ExtractMetadata(title)
	return Metadata{
		CleanTitle: md.CleanTitle,
		Labels:     md.Labels,
		Links:      md.Links,
	}
}
