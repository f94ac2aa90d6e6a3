package transpiler

import (
	"fmt"
	"strings"
)

// Debug marker lines emitted by instrumented programs. The session
// supervisor parses these; they are stripped from output shown to
// students.
const (
	MarkerLine = "D-D-D:LINE:"
	MarkerVars = "D-D-D:VARS:"
	MarkerStep = "D-D-D:STEP"
)

// varsExpr serializes a filtered snapshot of the current local
// bindings as JSON: names not starting with double underscore, values
// restricted to scalars, strings, booleans, lists, mappings or null.
// __import__ avoids an import statement, which phase 1 would never let
// a student write and which would shift line numbers.
const varsExpr = `__import__("json").dumps({k: v for k, v in locals().items()` +
	` if not k.startswith("__") and isinstance(v, (int, float, str, bool, list, dict, type(None)))}, default=str)`

// earlyExit lists statements after which control does not fall
// through; the pause would be dead code (or a syntax error after
// return at function end).
var earlyExit = map[string]bool{
	"return":   true,
	"break":    true,
	"continue": true,
	"raise":    true,
}

// instrument is phase 3: around every instrumentable statement it
// emits, at the statement's indentation,
//
//	print("D-D-D:LINE:<n>")
//	<statement>
//	print("D-D-D:VARS:" + <json snapshot>)
//	print("D-D-D:STEP")
//	debug_pause()
//
// Not instrumentable: blank lines, pure comments, and colon-terminated
// headers of compound statements (instrumenting a header would inject
// code between it and its suite). Early-exit statements get the LINE
// marker only.
func instrument(lines []string, lineMap map[int]int) ([]string, map[int]int) {
	out := make([]string, 0, len(lines))
	newMap := make(map[int]int, len(lines))
	emit := func(line string, src int) {
		out = append(out, line)
		newMap[len(out)] = src
	}

	for i, line := range lines {
		src := lineMap[i+1]

		if !instrumentable(line) {
			emit(line, src)
			continue
		}

		indent := indentOf(line)
		emit(indent+fmt.Sprintf(`print("%s%d")`, MarkerLine, src), src)
		emit(line, src)

		if earlyExitLine(line) {
			continue
		}
		emit(indent+`print("`+MarkerVars+`" + `+varsExpr+`)`, src)
		emit(indent+`print("`+MarkerStep+`")`, src)
		emit(indent+"debug_pause()", src)
	}
	return out, newMap
}

func instrumentable(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	code, _ := splitComment(line)
	return !strings.HasSuffix(strings.TrimSpace(code), ":")
}

func earlyExitLine(line string) bool {
	code, _ := splitComment(line)
	trimmed := strings.TrimSpace(code)
	word := trimmed
	for j := 0; j < len(trimmed); j++ {
		if !isWordByte(trimmed[j]) {
			word = trimmed[:j]
			break
		}
	}
	return earlyExit[word]
}
