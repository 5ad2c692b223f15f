package chunker

import (
	"regexp"

	"github.com/casetrack/casetrack/parser"
)

const (
	discoveryMinChars = 1000
	discoveryMaxChars = 3000
)

// discoveryItemPattern matches a numbered discovery item: "Request No.
// 1", "Interrogatory No. 3", "Request for Production No. 7".
var discoveryItemPattern = regexp.MustCompile(`(?i)^(Request|Interrogatory|Request for Production)(\s+for\s+\w+)?\s+No\.?\s*\d+`)

// chunkDiscovery packs each numbered Request (and its Response, which
// follows immediately until the next numbered item) into 1000-3000 char
// chunks, keeping Request+Response together as a single unit.
func chunkDiscovery(page parser.Page) []Candidate {
	units := requestResponseUnits(page.Content)
	return packUnits(units, discoveryMaxChars, 0)
}

func requestResponseUnits(content string) []unit {
	units := splitAtLineMatch(content, discoveryItemPattern.MatchString)
	if len(units) == 0 {
		return paragraphUnits(content)
	}
	return units
}
