package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (p packageJSON) has(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	_, ok := p.DevDependencies[name]
	return ok
}

// StructureValidator checks a project's expected file layout against the
// framework declared in its package.json (spec §4.12).
type StructureValidator struct{}

func (StructureValidator) Name() string { return "structure" }

func (StructureValidator) Validate(root string) Outcome {
	outcome := Outcome{Name: "structure", Passed: true}

	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return outcome // no package.json: nothing to check (spec doesn't mandate one)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{Message: fmt.Sprintf("package.json is not valid JSON: %s", err)})
		return outcome
	}

	if pkg.has("react-scripts") {
		requireFile(root, "public/index.html", &outcome)
		requireFile(root, "src/index.js", &outcome)
		if fileExists(root, "src/index.html") {
			outcome.Passed = false
			outcome.Details = append(outcome.Details, Detail{Message: "stray src/index.html found alongside react-scripts (expected public/index.html)"})
		}
	}

	if pkg.has("vite") {
		requireFile(root, "index.html", &outcome)
	}

	if pkg.has("tailwindcss") {
		if !fileExists(root, "tailwind.config.js") && !fileExists(root, "tailwind.config.ts") {
			outcome.Details = append(outcome.Details, Detail{Message: "tailwindcss declared but tailwind.config.js/.ts is missing"})
		}
		if !fileExists(root, "postcss.config.js") {
			outcome.Details = append(outcome.Details, Detail{Message: "tailwindcss declared but postcss.config.js is missing"})
		}
	}

	return outcome
}

func requireFile(root, relpath string, outcome *Outcome) {
	if !fileExists(root, relpath) {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{Message: fmt.Sprintf("required file missing: %s", relpath)})
	}
}

func fileExists(root, relpath string) bool {
	_, err := os.Stat(filepath.Join(root, relpath))
	return err == nil
}
