package links

import "strings"

// Mode selects a substitution algorithm.
type Mode string

const (
	// ModePositional rewrites each candidate's own span.
	ModePositional Mode = "positional"
	// ModeFirstOccurrence replaces the first remaining textual occurrence of
	// each candidate, in candidate order, against the mutated text.
	ModeFirstOccurrence Mode = "first-occurrence"
)

// Substituter rewrites text given candidates and their replacements.
type Substituter func(text string, candidates []Candidate, replacements []string) string

// SubstituterFor returns the substituter for mode, defaulting to positional.
func SubstituterFor(mode Mode) Substituter {
	if mode == ModeFirstOccurrence {
		return SubstituteFirstOccurrence
	}

	return Substitute
}

// Substitute replaces candidates[i]'s span with replacements[i]. Spans that
// overlap a previous one or fall outside text are left untouched. Only the
// common prefix of candidates and replacements is used.
func Substitute(text string, candidates []Candidate, replacements []string) string {
	n := min(len(candidates), len(replacements))
	if n == 0 {
		return text
	}

	var b strings.Builder

	b.Grow(len(text))

	last := 0

	for i := range n {
		c := candidates[i]
		if c.Start < last || c.End > len(text) || c.Start > c.End {
			continue
		}

		b.WriteString(text[last:c.Start])
		b.WriteString(replacements[i])
		last = c.End
	}

	b.WriteString(text[last:])

	return b.String()
}

// SubstituteFirstOccurrence replaces, for each index in order, the first
// occurrence of candidates[i].Raw in the progressively rewritten text. With
// duplicate links a replacement can land on an earlier physical occurrence
// than the one it was detected at.
func SubstituteFirstOccurrence(text string, candidates []Candidate, replacements []string) string {
	n := min(len(candidates), len(replacements))

	for i := range n {
		text = strings.Replace(text, candidates[i].Raw, replacements[i], 1)
	}

	return text
}
