// Package keywords holds the canonical table of isiXhosa keywords and
// their Python equivalents. The table is closed data: no I/O, no
// dynamic registration. The forward direction (isiXhosa -> Python)
// drives the transpiler's substitution pass; the reverse direction
// (Python -> isiXhosa) drives validation messages and error hints.
package keywords

import (
	"github.com/sahilm/fuzzy"
)

// Entry is one keyword pair. Matching is whole-word and
// case-sensitive: only the canonical casing below is recognized.
type Entry struct {
	Xhosa  string
	Python string
}

// Table lists every keyword pair in canonical order. Two source
// lexemes may share a target ("ku" and "phakathi" both mean "in");
// the reverse lookup keeps the first entry in this order.
var Table = []Entry{
	{"Ubuxoki", "False"},
	{"Inyaniso", "True"},
	{"Akukho", "None"},
	{"kwaye", "and"},
	{"njenga", "as"},
	{"qinisekisa", "assert"},
	{"ngemva", "async"},
	{"linda", "await"},
	{"yekisa", "break"},
	{"iklasi", "class"},
	{"qhubeka", "continue"},
	{"chaza", "def"},
	{"cima", "del"},
	{"okanye", "or"},
	{"enye", "else"},
	{"ngaphandle", "except"},
	{"ekugqibeleni", "finally"},
	{"jikelele", "global"},
	{"ukuba", "if"},
	{"ngenisa", "import"},
	{"ku", "in"},
	{"phakathi", "in"},
	{"umsebenzi", "lambda"},
	{"ingaphandle", "nonlocal"},
	{"hayi", "not"},
	{"dlula", "pass"},
	{"phakamisa", "raise"},
	{"buyisela", "return"},
	{"zama", "try"},
	{"ngexesha", "while"},
	{"nge", "with"},
	{"velisa", "yield"},
	{"ngokulandelelana", "for"},
	{"ukusuka", "from"},
	{"ngu", "is"},
	{"okanye_ukuba", "elif"},
}

var (
	toPython = make(map[string]string, len(Table))
	toXhosa  = make(map[string]string, len(Table))
	lexemes  []string
)

func init() {
	for _, e := range Table {
		if _, ok := toPython[e.Xhosa]; !ok {
			toPython[e.Xhosa] = e.Python
		}
		if _, ok := toXhosa[e.Python]; !ok {
			toXhosa[e.Python] = e.Xhosa
		}
		lexemes = append(lexemes, e.Xhosa)
	}
}

// ToPython returns the Python keyword for an isiXhosa lexeme.
func ToPython(xhosa string) (string, bool) {
	py, ok := toPython[xhosa]
	return py, ok
}

// ToXhosa returns the isiXhosa lexeme for a Python keyword.
func ToXhosa(python string) (string, bool) {
	xh, ok := toXhosa[python]
	return xh, ok
}

// IsPythonKeyword reports whether word is a Python keyword the
// validator must reject in student code.
func IsPythonKeyword(word string) bool {
	_, ok := toXhosa[word]
	return ok
}

// Suggest fuzzy-matches an identifier against the isiXhosa lexemes and
// returns the closest one. Used by diagnostics to hint at probable
// keyword typos ("ukub" -> "ukuba"). The boolean is false when nothing
// matches at all.
func Suggest(word string) (string, bool) {
	matches := fuzzy.Find(word, lexemes)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Str, true
}
