// Package extractor implements the Artifact Extractor (spec §4.11): it
// parses a Builder response's free-form "FILE: path" + fenced-code-block
// structure into files written under a sandboxed project root, applying the
// same path-escape rejection and placeholder substitution rules as the
// original ace/builder.py's extraction pass.
package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrPathEscape is returned (and the offending file skipped, never written)
// when a header path would resolve outside the project root (spec §4.11,
// §7, invariant 7).
var ErrPathEscape = errors.New("extractor: path escapes project root")

// headerPatterns recognizes every header style spec §4.11 lists, most
// specific/structured first. Each must capture exactly the path.
var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^[ \t]*#{1,3}[ \t]*file[ \t]*:[ \t]*(.+?)[ \t]*$`),
	regexp.MustCompile(`(?im)^[ \t]*file[ \t]*path[ \t]*:[ \t]*(.+?)[ \t]*$`),
	regexp.MustCompile(`(?im)^[ \t]*file[ \t]*:[ \t]*(.+?)[ \t]*$`),
	// A single backticked path on its own line, e.g. `src/foo.py`.
	regexp.MustCompile("(?m)^[ \t]*`([^`\n]+)`[ \t]*$"),
}

var fenceOpen = regexp.MustCompile("(?m)^[ \t]*```([a-zA-Z0-9_+-]*)[ \t]*$")

// File is one extracted artifact.
type File struct {
	Path       string // normalized, relative to the project root
	Content    string
	IsTest     bool
}

// Result summarizes one extraction pass (spec §4.11's implementation vs.
// test counts, and the zero/tests-only warnings).
type Result struct {
	Files            []File
	Skipped          []string // paths rejected for escaping the root
	Warnings         []string
	ImplementationN  int
	TestN            int
}

// Options configures placeholder substitution and path normalization.
type Options struct {
	ProjectName string            // used to strip "{project}/" duplicate prefixes
	Env         map[string]string // backing store for %REACT_APP_<NAME>% substitution; falls back to os.Getenv
}

// Extract parses response for FILE headers + fenced code blocks and returns
// every artifact found, without touching disk (spec §4.11's parsing step).
func Extract(response string, opts Options) Result {
	var result Result

	matches := findHeaders(response)
	for _, m := range matches {
		rawPath := strings.TrimSpace(m.path)
		content, ok := extractFence(response, m.end)
		if !ok {
			continue
		}

		content = substitutePlaceholders(content, opts.Env)

		normalized, err := normalizePath(rawPath, opts.ProjectName)
		if err != nil {
			result.Skipped = append(result.Skipped, rawPath)
			continue
		}

		f := File{Path: normalized, Content: content, IsTest: isTestPath(normalized)}
		result.Files = append(result.Files, f)
		if f.IsTest {
			result.TestN++
		} else {
			result.ImplementationN++
		}
	}

	if len(result.Files) == 0 {
		result.Warnings = append(result.Warnings, "extractor: zero files extracted from builder response")
	} else if result.ImplementationN == 0 {
		result.Warnings = append(result.Warnings, "extractor: only test files were produced, no implementation files")
	}

	return result
}

// WriteAll writes every extracted file under root, creating parent
// directories as needed, and rejects any path that would escape root (spec
// §4.11, §7). Returns the files actually written.
func WriteAll(root string, files []File) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("extractor: resolving project root: %w", err)
	}

	var written []File
	for _, f := range files {
		target := filepath.Join(absRoot, f.Path)
		if !withinRoot(absRoot, target) {
			return written, fmt.Errorf("%w: %s", ErrPathEscape, f.Path)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("extractor: creating parent dirs for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return written, fmt.Errorf("extractor: writing %s: %w", f.Path, err)
		}
		written = append(written, f)
	}
	return written, nil
}

func withinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

type headerMatch struct {
	path string
	end  int // byte offset immediately after the header line
}

// findHeaders scans response with every header pattern and returns matches
// in document order, de-duplicating overlapping matches at the same offset.
func findHeaders(response string) []headerMatch {
	var all []headerMatch
	for _, re := range headerPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(response, -1) {
			all = append(all, headerMatch{
				path: response[m[2]:m[3]],
				end:  m[1],
			})
		}
	}
	// Stable sort by start-of-match position (approximated by end, since
	// headers don't overlap across patterns in well-formed input); patterns
	// are tried most-specific-first so an earlier pattern's match at the
	// same location wins via stable sort.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].end < all[j-1].end; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	return dedupeByEnd(all)
}

func dedupeByEnd(matches []headerMatch) []headerMatch {
	seen := make(map[int]bool)
	var out []headerMatch
	for _, m := range matches {
		if seen[m.end] {
			continue
		}
		seen[m.end] = true
		out = append(out, m)
	}
	return out
}

// extractFence finds the first fenced code block starting at or after
// offset (allowing an optional language hint and blank line) and returns its
// contents (spec §4.11: "each header must be followed by a fenced code
// block").
func extractFence(response string, offset int) (string, bool) {
	rest := response[offset:]
	loc := fenceOpen.FindStringSubmatchIndex(rest)
	if loc == nil {
		return "", false
	}
	// Require the fence to start within a short distance of the header
	// (allowing blank lines), not anywhere later in the document.
	if strings.TrimSpace(rest[:loc[0]]) != "" {
		return "", false
	}

	bodyStart := loc[1]
	if bodyStart < len(rest) && rest[bodyStart] == '\n' {
		bodyStart++
	}

	closeIdx := strings.Index(rest[bodyStart:], "```")
	if closeIdx == -1 {
		return "", false
	}
	return rest[bodyStart : bodyStart+closeIdx], true
}

// normalizePath applies spec §4.11's safety/normalization rules: strip a
// leading "/", strip a duplicate "{project}/" or "examples/{project}/"
// prefix, and resolve to a root-relative path.
func normalizePath(raw, projectName string) (string, error) {
	p := strings.TrimSpace(raw)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")

	if projectName != "" {
		p = strings.TrimPrefix(p, projectName+"/")
		p = strings.TrimPrefix(p, "examples/"+projectName+"/")
	}

	p = filepath.Clean(p)
	if p == "." || p == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscape)
	}
	if p == ".." || strings.HasPrefix(p, "../") || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, raw)
	}
	return p, nil
}

func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	if strings.Contains(lower, "tests/") || strings.HasPrefix(lower, "test/") {
		return true
	}
	return strings.Contains(lower, "test")
}

// substitutePlaceholders replaces %PUBLIC_URL% with "" and %REACT_APP_<NAME>%
// with the corresponding environment value (empty if unset), before the
// content is written (spec §4.11).
var reactAppVar = regexp.MustCompile(`%(REACT_APP_[A-Z0-9_]+)%`)

func substitutePlaceholders(content string, env map[string]string) string {
	content = strings.ReplaceAll(content, "%PUBLIC_URL%", "")
	return reactAppVar.ReplaceAllStringFunc(content, func(match string) string {
		name := reactAppVar.FindStringSubmatch(match)[1]
		if v, ok := env[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}
