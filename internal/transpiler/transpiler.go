// Package transpiler turns isiXhosa source into runnable Python plus a
// line map from target lines back to source lines. The transformation
// is purely lexical: comment-aware, string-aware, whole-word keyword
// substitution. No parsing.
//
// The pipeline has four phases:
//
//  1. validation — reject Python keywords in code position
//  2. keyword substitution
//  3. debug instrumentation (debug mode only)
//  4. input-prompt rewriting (splits input("P") into print + input(""))
//
// Phase 4 runs after phase 3 so that the debug_pause() sentinel emitted
// by the instrumenter is rewritten into a blocking stdin read.
package transpiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/LuthoYRN/isipython/internal/keywords"
)

// PromptMarker is the prefix prepended to rewritten input prompts so
// the session supervisor can recognize them on stdout. Suppressed in
// challenge mode to keep graded output clean.
const PromptMarker = ">>>"

// Options selects the two orthogonal transpilation modes.
type Options struct {
	// Debug inserts step instrumentation before and after every
	// executable statement.
	Debug bool
	// Challenge suppresses the prompt marker so graded stdout is
	// byte-comparable against expected output.
	Challenge bool
}

// Artifact is the immutable result of a successful transpilation.
type Artifact struct {
	// Target is the generated Python source.
	Target string
	// LineMap maps 1-indexed target lines to the 1-indexed source
	// line they originated from. Total and monotonically
	// non-decreasing.
	LineMap map[int]int
}

// ForeignKeywordError reports a Python keyword found in code position.
// Students must write isiXhosa only.
type ForeignKeywordError struct {
	Line   int    // 1-indexed source line
	Python string // the forbidden Python keyword
	Xhosa  string // the required isiXhosa keyword
}

func (e *ForeignKeywordError) Error() string {
	return fmt.Sprintf("Line %d: Please use isiXhosa keyword '%s' instead of Python keyword '%s'",
		e.Line, e.Xhosa, e.Python)
}

// Transpile runs the full pipeline. It fails only in phase 1, with a
// *ForeignKeywordError. Phases 2-4 are total and do no I/O.
func Transpile(source string, opts Options) (*Artifact, error) {
	lines := strings.Split(source, "\n")

	if err := Validate(source); err != nil {
		return nil, err
	}

	out := make([]string, len(lines))
	lineMap := make(map[int]int, len(lines))
	for i, line := range lines {
		out[i] = substituteLine(line)
		lineMap[i+1] = i + 1
	}

	if opts.Debug {
		out, lineMap = instrument(out, lineMap)
	}

	out, lineMap = rewriteInputs(out, lineMap, opts.Challenge)

	return &Artifact{
		Target:  strings.Join(out, "\n"),
		LineMap: lineMap,
	}, nil
}

// Validate is phase 1: it rejects the program if any Python keyword
// appears as a standalone word in code position. Comments and string
// literals are exempt.
func Validate(source string) error {
	for i, line := range strings.Split(source, "\n") {
		code, _ := splitComment(line)
		var failed *ForeignKeywordError
		scanWords(code, func(word string) string {
			if failed == nil && keywords.IsPythonKeyword(word) {
				xh, _ := keywords.ToXhosa(word)
				failed = &ForeignKeywordError{Line: i + 1, Python: word, Xhosa: xh}
			}
			return word
		})
		if failed != nil {
			return failed
		}
	}
	return nil
}

// substituteLine is phase 2 for one line: isiXhosa keywords in the code
// part become Python keywords; the comment, if any, is re-attached
// unchanged. Matching is canonical-casing only, so UKUBA and Ukuba
// pass through untouched.
func substituteLine(line string) string {
	code, comment := splitComment(line)
	replaced := scanWords(code, func(word string) string {
		if py, ok := keywords.ToPython(word); ok {
			return py
		}
		return word
	})
	return replaced + comment
}

// splitComment splits a line at the first '#' that is not inside a
// quoted string. The returned comment includes the '#' itself and is
// empty when the line has none.
func splitComment(line string) (code, comment string) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return line[:i], line[i:]
		}
	}
	return line, ""
}

// scanWords walks a code fragment, calling repl for every maximal
// identifier run outside string literals and splicing in its return
// value. String contents are copied verbatim.
func scanWords(code string, repl func(string) string) string {
	var b strings.Builder
	b.Grow(len(code))
	var quote byte
	i := 0
	for i < len(code) {
		c := code[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			b.WriteByte(c)
			i++
			continue
		}
		if isWordByte(c) {
			j := i
			for j < len(code) && isWordByte(code[j]) {
				j++
			}
			b.WriteString(repl(code[i:j]))
			i = j
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// indentOf returns the leading whitespace of a line.
func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// Prompt-splitting patterns. RE2 has no backreferences, so double- and
// single-quoted prompts are matched separately. [^"]* / [^']* keeps the
// match from crossing into a second literal on the same line.
var (
	inputDouble = regexp.MustCompile(`input\s*\(\s*"([^"]*)"\s*\)`)
	inputSingle = regexp.MustCompile(`input\s*\(\s*'([^']*)'\s*\)`)
)

// rewriteInputs is phase 4 (the input rewriter). Every
// input("P")-style call with a literal prompt is split into
//
//	print(<quote><marker><P><quote>)
//	... input("") ...
//
// at the same indentation, so the prompt reaches stdout before the
// child blocks on stdin. debug_pause() sentinels become input("").
func rewriteInputs(lines []string, lineMap map[int]int, challenge bool) ([]string, map[int]int) {
	marker := PromptMarker
	if challenge {
		marker = ""
	}

	out := make([]string, 0, len(lines))
	newMap := make(map[int]int, len(lines))
	emit := func(line string, src int) {
		out = append(out, line)
		newMap[len(out)] = src
	}

	for i, line := range lines {
		src := lineMap[i+1]
		indent := indentOf(line)

		if strings.TrimSpace(line) == "debug_pause()" {
			emit(indent+`input("")`, src)
			continue
		}

		quote, loc := "\"", inputDouble.FindStringSubmatchIndex(line)
		if loc == nil {
			quote, loc = "'", inputSingle.FindStringSubmatchIndex(line)
		}
		if loc == nil {
			emit(line, src)
			continue
		}

		prompt := line[loc[2]:loc[3]]
		emit(indent+"print("+quote+marker+prompt+quote+")", src)
		emit(line[:loc[0]]+`input("")`+line[loc[1]:], src)
	}
	return out, newMap
}
