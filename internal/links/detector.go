// Package links finds URL-like substrings in chat text and rewrites them.
package links

import "regexp"

// Candidate is a detected URL-like substring and its byte span [Start, End)
// in the scanned text.
type Candidate struct {
	Raw   string
	Start int
	End   int
}

// Detector finds link candidates in free text.
type Detector interface {
	Detect(text string) []Candidate
}

// nonSpace excludes Unicode separators (NBSP, U+2000-U+200A, U+3000, line
// and paragraph separators) and the BOM as well as ASCII whitespace.
const (
	nonSpace          = `[^\s\p{Z}\x{FEFF}]`
	schemePattern     = `https?://` + nonSpace + `+`
	wwwPattern        = `www\.` + nonSpace + `+`
	bareDomainPattern = `[a-zA-Z0-9-]+\.[a-zA-Z]{2,}`
)

var (
	withBareDomains    = regexp.MustCompile(`(` + schemePattern + `|` + wwwPattern + `|` + bareDomainPattern + `)(` + nonSpace + `*)`)
	withoutBareDomains = regexp.MustCompile(`(` + schemePattern + `|` + wwwPattern + `)(` + nonSpace + `*)`)
)

// DetectorOptions configures a RegexDetector.
type DetectorOptions struct {
	// BareDomains enables matching of scheme-less "label.tld" tokens. It also
	// matches things like file names ("notes.txt"), so it can be turned off.
	BareDomains bool
}

// RegexDetector matches scheme URLs, www. hosts and optionally bare domains
// in a single left-to-right scan. Duplicates are kept in source order.
type RegexDetector struct {
	pattern *regexp.Regexp
}

// NewRegexDetector creates a detector for the given options.
func NewRegexDetector(opts DetectorOptions) *RegexDetector {
	pattern := withoutBareDomains
	if opts.BareDomains {
		pattern = withBareDomains
	}

	return &RegexDetector{pattern: pattern}
}

func (d *RegexDetector) Detect(text string) []Candidate {
	spans := d.pattern.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(spans))
	for _, span := range spans {
		candidates = append(candidates, Candidate{
			Raw:   text[span[0]:span[1]],
			Start: span[0],
			End:   span[1],
		})
	}

	return candidates
}

var defaultDetector = NewRegexDetector(DetectorOptions{BareDomains: true})

// Extract detects candidates with bare-domain matching enabled.
func Extract(text string) []Candidate {
	return defaultDetector.Detect(text)
}
