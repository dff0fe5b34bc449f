package orchestrator

import (
	"regexp"
	"strconv"
	"strings"
)

// architectMarkers are tried in document order; each introduces the section
// running until the next marker or end of document (spec §4.7 step 2).
var architectMarkers = []struct {
	name string
	re   *regexp.Regexp
}{
	{"spec", regexp.MustCompile(`(?m)^#\s*Specification:.*$`)},
	{"plan", regexp.MustCompile(`(?m)^#\s*Implementation Plan:.*$`)},
	{"tasks", regexp.MustCompile(`(?m)^#\s*Task Breakdown:.*$`)},
}

// architectSections is the parsed, best-effort split of an architect
// response into its three blueprint files.
type architectSections struct {
	Spec    string
	Plan    string
	Tasks   string
	Warning string
}

// parseArchitectOutput splits response into SPEC.md/PLAN.md/TASKS.md content
// by header marker (spec §4.7 step 2). If no marker is found, the whole
// response is written to all three and a warning is recorded.
func parseArchitectOutput(response string) architectSections {
	type found struct {
		name  string
		start int
		end   int // start of header line content (after marker line)
	}

	var hits []found
	for _, m := range architectMarkers {
		loc := m.re.FindStringIndex(response)
		if loc == nil {
			continue
		}
		hits = append(hits, found{name: m.name, start: loc[0], end: loc[1]})
	}

	if len(hits) == 0 {
		return architectSections{
			Spec: response, Plan: response, Tasks: response,
			Warning: "architect response did not contain any of the expected section markers; writing full response to SPEC.md, PLAN.md, and TASKS.md",
		}
	}

	// Sort hits by position (stable insertion sort; small fixed N).
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].start < hits[j-1].start; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	sections := architectSections{}
	for i, h := range hits {
		end := len(response)
		if i+1 < len(hits) {
			end = hits[i+1].start
		}
		content := strings.TrimSpace(response[h.end:end])
		switch h.name {
		case "spec":
			sections.Spec = content
		case "plan":
			sections.Plan = content
		case "tasks":
			sections.Tasks = content
		}
	}

	var missing []string
	if sections.Spec == "" {
		missing = append(missing, "Specification")
	}
	if sections.Plan == "" {
		missing = append(missing, "Implementation Plan")
	}
	if sections.Tasks == "" {
		missing = append(missing, "Task Breakdown")
	}
	if len(missing) > 0 {
		sections.Warning = "architect response was missing section(s): " + strings.Join(missing, ", ")
	}

	return sections
}

var (
	taskHeaderRe = regexp.MustCompile(`(?m)^###\s*Task\b(.*)$`)
	filesLineRe  = regexp.MustCompile(`(?m)^\s*-\s*\*\*Files\*\*:\s*(.+)$`)
	changesLineRe = regexp.MustCompile(`(?m)^\s*-\s*\*\*Changes\*\*:\s*(.+)$`)
)

// parseTasks splits TASKS.md into an ordered list of TaskSpec, tolerant of
// extra content between tasks (spec §6 "Task grammar").
func parseTasks(tasksMD string) []TaskSpec {
	headers := taskHeaderRe.FindAllStringSubmatchIndex(tasksMD, -1)
	if len(headers) == 0 {
		return nil
	}

	var tasks []TaskSpec
	for i, h := range headers {
		start := h[1] // end of the header line's matched text
		end := len(tasksMD)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := tasksMD[start:end]

		title := strings.TrimSpace(tasksMD[h[2]:h[3]])
		title = strings.TrimPrefix(title, ":")
		title = strings.TrimSpace(title)

		ts := TaskSpec{Index: i + 1, Title: title, Raw: strings.TrimSpace(tasksMD[h[0]:end])}
		if m := filesLineRe.FindStringSubmatch(body); m != nil {
			ts.Files = splitCommaList(m[1])
		}
		if m := changesLineRe.FindStringSubmatch(body); m != nil {
			ts.Changes = strings.TrimSpace(m[1])
		}
		tasks = append(tasks, ts)
	}
	return tasks
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// filterTaskIndices restricts tasks to the 1-based indices in want,
// warning about any index out of range and continuing with the valid
// subset (spec §4.7 "Session resume").
func filterTaskIndices(tasks []TaskSpec, want []int) ([]TaskSpec, []string) {
	if len(want) == 0 {
		return tasks, nil
	}
	byIndex := make(map[int]TaskSpec, len(tasks))
	for _, t := range tasks {
		byIndex[t.Index] = t
	}

	var out []TaskSpec
	var warnings []string
	for _, idx := range want {
		t, ok := byIndex[idx]
		if !ok {
			warnings = append(warnings, "resume_tasks index out of range, skipped: "+strconv.Itoa(idx))
			continue
		}
		out = append(out, t)
	}
	return out, warnings
}
