package transpiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transpile(t *testing.T, source string, opts Options) *Artifact {
	t.Helper()
	art, err := Transpile(source, opts)
	require.NoError(t, err)
	return art
}

func TestKeywordSubstitution(t *testing.T) {
	art := transpile(t, "ukuba x > 5:\n    print(x)", Options{})
	assert.Equal(t, "if x > 5:\n    print(x)", art.Target)
}

func TestSubstitutionIsWholeWord(t *testing.T) {
	// "ukubalela" contains "ukuba" but is an ordinary identifier.
	art := transpile(t, "ukubalela = 3", Options{})
	assert.Equal(t, "ukubalela = 3", art.Target)
}

func TestStringsAndCommentsUntouched(t *testing.T) {
	source := `print("ukuba kumnandi")  # ukuba engqondweni`
	art := transpile(t, source, Options{})
	assert.Equal(t, source, art.Target)
}

func TestHashInsideStringIsNotAComment(t *testing.T) {
	art := transpile(t, `print("#1") # ukuba`, Options{})
	assert.Equal(t, `print("#1") # ukuba`, art.Target)
}

func TestCapitalizedLiterals(t *testing.T) {
	art := transpile(t, "x = Inyaniso\ny = Ubuxoki\nz = Akukho", Options{})
	assert.Equal(t, "x = True\ny = False\nz = None", art.Target)
}

func TestLoopTranslation(t *testing.T) {
	source := "ngexesha i < 3:\n    i = i + 1"
	art := transpile(t, source, Options{})
	assert.Equal(t, "while i < 3:\n    i = i + 1", art.Target)
}

func TestPlainLineMapIsIdentity(t *testing.T) {
	art := transpile(t, "a = 1\nb = 2\nc = a + b", Options{})
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 3}, art.LineMap)
}

func TestForeignKeywordRejected(t *testing.T) {
	_, err := Transpile("import os", Options{})
	require.Error(t, err)

	var fk *ForeignKeywordError
	require.ErrorAs(t, err, &fk)
	assert.Equal(t, 1, fk.Line)
	assert.Equal(t,
		"Line 1: Please use isiXhosa keyword 'ngenisa' instead of Python keyword 'import'",
		err.Error())
}

func TestForeignKeywordReportsSourceLine(t *testing.T) {
	_, err := Transpile("x = 1\ny = 2\nwhile x < y:\n    dlula", Options{})
	var fk *ForeignKeywordError
	require.ErrorAs(t, err, &fk)
	assert.Equal(t, 3, fk.Line)
	assert.Equal(t, "while", fk.Python)
	assert.Equal(t, "ngexesha", fk.Xhosa)
}

func TestForeignKeywordInsideStringAllowed(t *testing.T) {
	_, err := Transpile(`print("while loops are called ngexesha")`, Options{})
	assert.NoError(t, err)
}

func TestForeignKeywordInCommentAllowed(t *testing.T) {
	_, err := Transpile("x = 1  # while this works", Options{})
	assert.NoError(t, err)
}

func TestInputPromptSplit(t *testing.T) {
	art := transpile(t, `igama = input("Ungubani?")`, Options{})
	lines := strings.Split(art.Target, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `print(">>>Ungubani?")`, lines[0])
	assert.Equal(t, `igama = input("")`, lines[1])
	assert.Equal(t, map[int]int{1: 1, 2: 1}, art.LineMap)
}

func TestInputPromptSplitSingleQuotes(t *testing.T) {
	art := transpile(t, `x = input('Nika inani: ')`, Options{})
	lines := strings.Split(art.Target, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `print('>>>Nika inani: ')`, lines[0])
	assert.Equal(t, `x = input("")`, lines[1])
}

func TestInputPromptKeepsIndentation(t *testing.T) {
	source := "ukuba Inyaniso:\n    x = input(\"Nika: \")"
	art := transpile(t, source, Options{})
	lines := strings.Split(art.Target, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `    print(">>>Nika: ")`, lines[1])
	assert.Equal(t, `    x = input("")`, lines[2])
	assert.Equal(t, map[int]int{1: 1, 2: 2, 3: 2}, art.LineMap)
}

func TestChallengeModeSuppressesPromptMarker(t *testing.T) {
	art := transpile(t, `igama = input("Ungubani?")`, Options{Challenge: true})
	lines := strings.Split(art.Target, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `print("Ungubani?")`, lines[0])
	assert.NotContains(t, art.Target, PromptMarker)
}

func TestEmptyInputNotSplit(t *testing.T) {
	art := transpile(t, `x = input()`, Options{})
	assert.Equal(t, `x = input()`, art.Target)
}

func TestDebugInstrumentationShape(t *testing.T) {
	art := transpile(t, "x = 1", Options{Debug: true})
	lines := strings.Split(art.Target, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, `print("D-D-D:LINE:1")`, lines[0])
	assert.Equal(t, "x = 1", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], `print("D-D-D:VARS:" + `))
	assert.Equal(t, `print("D-D-D:STEP")`, lines[3])
	// The pause sentinel is rewritten into a blocking stdin read.
	assert.Equal(t, `input("")`, lines[4])

	for target := 1; target <= 5; target++ {
		assert.Equal(t, 1, art.LineMap[target])
	}
}

func TestDebugSkipsHeadersBlanksAndComments(t *testing.T) {
	source := "# intro\n\nukuba Inyaniso:\n    x = 1"
	art := transpile(t, source, Options{Debug: true})
	lines := strings.Split(art.Target, "\n")

	assert.Equal(t, "# intro", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "if True:", lines[2])
	// Only the body statement is instrumented, at body indentation.
	assert.Equal(t, `    print("D-D-D:LINE:4")`, lines[3])
	assert.Equal(t, "    x = 1", lines[4])
}

func TestDebugEarlyExitGetsNoPause(t *testing.T) {
	source := "chaza f():\n    buyisela 1"
	art := transpile(t, source, Options{Debug: true})
	lines := strings.Split(art.Target, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "def f():", lines[0])
	assert.Equal(t, `    print("D-D-D:LINE:2")`, lines[1])
	assert.Equal(t, "    return 1", lines[2])
}

func TestDebugLineMapPointsAtSourceLines(t *testing.T) {
	source := "x = 1\ny = 2"
	art := transpile(t, source, Options{Debug: true})

	// Every generated line maps to one of the two source lines, and
	// both source lines are represented.
	seen := map[int]bool{}
	for target := 1; target <= len(strings.Split(art.Target, "\n")); target++ {
		src, ok := art.LineMap[target]
		require.True(t, ok, "target line %d unmapped", target)
		seen[src] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true}, seen)
}

func TestLineMapIsMonotonic(t *testing.T) {
	source := "a = input(\"A\")\nb = input(\"B\")\nprint(a, b)"
	art := transpile(t, source, Options{Debug: true})

	n := len(strings.Split(art.Target, "\n"))
	prev := 0
	for target := 1; target <= n; target++ {
		src := art.LineMap[target]
		assert.GreaterOrEqual(t, src, prev)
		prev = src
	}
}
