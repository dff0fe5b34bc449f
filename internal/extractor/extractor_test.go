package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "FILE: src/App.js\n```javascript\nconsole.log('hi')\n```\n\n## File: src/utils/helpers.js\n```js\nexport const x = 1\n```\n\n`src/styles.css`\n```css\nbody { color: red; }\n```\n"

func TestExtractFindsAllHeaderStyles(t *testing.T) {
	result := Extract(sample, Options{})
	require.Len(t, result.Files, 3)

	paths := map[string]string{}
	for _, f := range result.Files {
		paths[f.Path] = f.Content
	}
	assert.Contains(t, paths["src/App.js"], "console.log")
	assert.Contains(t, paths["src/utils/helpers.js"], "export const x")
	assert.Contains(t, paths["src/styles.css"], "color: red")
}

func TestExtractCountsImplementationVsTest(t *testing.T) {
	in := "FILE: src/app.js\n```js\ncode\n```\nFILE: src/app.test.js\n```js\ntest code\n```\n"
	result := Extract(in, Options{})
	assert.Equal(t, 1, result.ImplementationN)
	assert.Equal(t, 1, result.TestN)
}

func TestExtractWarnsWhenOnlyTestsProduced(t *testing.T) {
	in := "FILE: src/app.test.js\n```js\ntest code\n```\n"
	result := Extract(in, Options{})
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "only test files")
}

func TestExtractWarnsOnZeroFiles(t *testing.T) {
	result := Extract("no files here, just prose", Options{})
	assert.Empty(t, result.Files)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "zero files")
}

func TestNormalizePathStripsLeadingSlashAndProjectPrefix(t *testing.T) {
	p, err := normalizePath("/src/index.js", "")
	require.NoError(t, err)
	assert.Equal(t, "src/index.js", p)

	p, err = normalizePath("examples/myapp/src/index.js", "myapp")
	require.NoError(t, err)
	assert.Equal(t, "src/index.js", p)

	p, err = normalizePath("myapp/src/index.js", "myapp")
	require.NoError(t, err)
	assert.Equal(t, "src/index.js", p)
}

func TestNormalizePathRejectsEscape(t *testing.T) {
	_, err := normalizePath("../../etc/passwd", "")
	assert.ErrorIs(t, err, ErrPathEscape)

	_, err = normalizePath("/etc/passwd", "")
	require.NoError(t, err) // leading "/" alone just gets stripped to a relative path
}

func TestWriteAllRejectsEscapingFile(t *testing.T) {
	dir := t.TempDir()
	files := []File{{Path: "../outside.txt", Content: "x"}}
	_, err := WriteAll(dir, files)
	assert.ErrorIs(t, err, ErrPathEscape)

	_, statErr := os.Stat(filepath.Join(dir, "..", "outside.txt"))
	assert.Error(t, statErr)
}

func TestWriteAllCreatesNestedDirs(t *testing.T) {
	dir := t.TempDir()
	files := []File{{Path: "src/nested/deep/file.go", Content: "package deep\n"}}
	written, err := WriteAll(dir, files)
	require.NoError(t, err)
	require.Len(t, written, 1)

	data, err := os.ReadFile(filepath.Join(dir, "src/nested/deep/file.go"))
	require.NoError(t, err)
	assert.Equal(t, "package deep\n", string(data))
}

func TestSubstitutePlaceholders(t *testing.T) {
	out := substitutePlaceholders("url=%PUBLIC_URL%/favicon.ico key=%REACT_APP_KEY%", map[string]string{"REACT_APP_KEY": "abc123"})
	assert.Equal(t, "url=/favicon.ico key=abc123", out)
}

func TestSubstitutePlaceholdersFallsBackToEmptyWhenUnset(t *testing.T) {
	out := substitutePlaceholders("%REACT_APP_UNSET_XYZ%", nil)
	assert.Equal(t, "", out)
}
