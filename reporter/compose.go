package reporter

import "strings"

// suitePathSeparator joins suite names in display values.
const suitePathSeparator = " > "

// undefinedSuite is the parentSuite base value when there is no suite path.
const undefinedSuite = "undefined"

// Composition holds the suite-derived labels and display name of one test.
// Suite and SubSuite are empty when the path is too short to define them.
type Composition struct {
	Package     string
	ParentSuite string
	Suite       string
	SubSuite    string
	FullName    string
}

// Compose derives package, parentSuite, suite and subSuite labels from a
// suite path (outermost first) and builds the full display name for title.
func Compose(suitePath []string, title string, packageAffix, parentSuiteAffix *Affix) Composition {
	parentSuite := undefinedSuite
	if len(suitePath) > 0 {
		parentSuite = suitePath[0]
	}

	c := Composition{
		Package:     packageAffix.Apply(strings.Join(suitePath, ".")),
		ParentSuite: parentSuiteAffix.Apply(parentSuite),
		FullName:    strings.Join(suitePath, suitePathSeparator) + suitePathSeparator + title,
	}

	switch n := len(suitePath); {
	case n == 2:
		c.Suite = suitePath[1]
	case n > 2:
		c.Suite = suitePath[1]
		c.SubSuite = strings.Join(suitePath[2:], suitePathSeparator)
	}
	return c
}
