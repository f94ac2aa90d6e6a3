// Package diagnostics turns raw Python error output into diagnostics a
// student can use: line numbers are remapped from the generated target
// source back to the isiXhosa source, and the text is paraphrased into
// beginner-friendly isiXhosa by an LLM collaborator.
package diagnostics

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/LuthoYRN/isipython/internal/keywords"
)

var linePattern = regexp.MustCompile(`line (\d+)`)

// RemapLines rewrites every "line N" occurrence in text through the
// line map, replacing a target line number with its source preimage.
// Numbers without a preimage are left unchanged. The replacement is a
// single simultaneous pass over the raw text; callers apply it exactly
// once per diagnostic. When every mapped value is a fixed point of the
// map (any suffix-shift map qualifies), a second application is the
// identity.
func RemapLines(text string, lineMap map[int]int) string {
	if len(lineMap) == 0 {
		return text
	}
	return linePattern.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m[len("line "):])
		if err != nil {
			return m
		}
		src, ok := lineMap[n]
		if !ok {
			return m
		}
		return fmt.Sprintf("line %d", src)
	})
}

var nameErrorPattern = regexp.MustCompile(`name '([A-Za-z_][A-Za-z0-9_]*)' is not defined`)

// KeywordHint inspects an error text for an undefined name that is a
// near-miss of an isiXhosa keyword and returns the suggested lexeme.
// A student who writes "ukub x > 5:" gets a NameError mentioning
// "ukub"; the hint points at "ukuba".
func KeywordHint(errText string) (suggestion string, ok bool) {
	m := nameErrorPattern.FindStringSubmatch(errText)
	if m == nil {
		return "", false
	}
	name := m[1]
	sugg, found := keywords.Suggest(name)
	if !found || sugg == name {
		return "", false
	}
	return sugg, true
}
