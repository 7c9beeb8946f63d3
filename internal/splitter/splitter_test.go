package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeforge/internal/model"
)

func TestSplitByFileMarkers(t *testing.T) {
	text := "# FILE: src/main.py\nprint('hello')\n# FILE: src/util.py\ndef helper():\n    pass\n"
	files := Split(text, model.LanguagePython)
	require.Len(t, files, 2)
	assert.Equal(t, "src/main.py", files[0].Filename)
	assert.Equal(t, "print('hello')", files[0].Body)
	assert.Equal(t, "src/util.py", files[1].Filename)
}

func TestSplitDuplicateMarkerKeepsLastOccurrence(t *testing.T) {
	text := "# FILE: src/main.py\nprint('v1')\n# FILE: src/main.py\nprint('v2')\n"
	files := Split(text, model.LanguagePython)
	require.Len(t, files, 1)
	assert.Equal(t, "src/main.py", files[0].Filename)
	assert.Equal(t, "print('v2')", files[0].Body)
}

func TestSplitByFencedBlockInfersJavaClassName(t *testing.T) {
	text := "```java\npublic class Main {\n  public static void main(String[] a) {}\n}\n```"
	files := Split(text, model.LanguageJava)
	require.Len(t, files, 1)
	assert.Equal(t, "Main.java", files[0].Filename)
}

func TestSplitByFencedBlockInfersFilenameComment(t *testing.T) {
	text := "```python\n# filename: app/server.py\nprint('x')\n```"
	files := Split(text, model.LanguagePython)
	require.Len(t, files, 1)
	assert.Equal(t, "app/server.py", files[0].Filename)
}

func TestSplitFallsBackToSingleFile(t *testing.T) {
	text := "print('no markers or fences')"
	files := Split(text, model.LanguagePython)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Filename, "generated_script_")
	assert.Equal(t, text, files[0].Body)
}

func TestSplitEmptyTextReturnsNoFiles(t *testing.T) {
	assert.Empty(t, Split("   ", model.LanguagePython))
}

func TestSplitStripsFenceInsideMarkerBody(t *testing.T) {
	text := "# FILE: main.py\n```python\nprint(1)\n```\n"
	files := Split(text, model.LanguagePython)
	require.Len(t, files, 1)
	assert.Equal(t, "print(1)", files[0].Body)
}
