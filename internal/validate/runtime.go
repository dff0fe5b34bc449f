package validate

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// RuntimeValidator starts the project's server on a free port and probes
// root plus any SPEC-declared endpoints for a non-404 response (spec §4.12,
// opt-in).
type RuntimeValidator struct {
	// StartCommand launches the server, e.g. []string{"npm", "start"}.
	StartCommand []string
	// Endpoints are extra paths to probe beyond "/" (SPEC.md-declared routes).
	Endpoints []string
	// Client defaults to an http.Client with RuntimeTimeout.
	Client *http.Client
}

func (v RuntimeValidator) Name() string { return "runtime" }

func (v RuntimeValidator) Validate(root string) Outcome {
	outcome := Outcome{Name: "runtime", Passed: true}
	if len(v.StartCommand) == 0 {
		return outcome
	}

	port, err := freePort()
	if err != nil {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{Message: fmt.Sprintf("could not find a free port: %s", err)})
		return outcome
	}

	cmd := exec.Command(v.StartCommand[0], v.StartCommand[1:]...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), fmt.Sprintf("PORT=%d", port))
	if err := cmd.Start(); err != nil {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{Message: fmt.Sprintf("starting server: %s", err), Command: fmt.Sprint(v.StartCommand)})
		return outcome
	}
	defer func() { _ = cmd.Process.Kill() }()

	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: RuntimeTimeout}
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	paths := append([]string{"/"}, v.Endpoints...)

	deadline := time.Now().Add(RuntimeTimeout)
	for _, p := range paths {
		var lastErr error
		ok := false
		for time.Now().Before(deadline) {
			resp, err := client.Get(base + p)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode != http.StatusNotFound {
					ok = true
					break
				}
				lastErr = fmt.Errorf("got 404")
			} else {
				lastErr = err
			}
			time.Sleep(200 * time.Millisecond)
		}
		if !ok {
			outcome.Passed = false
			msg := fmt.Sprintf("endpoint %s did not respond", p)
			if lastErr != nil {
				msg = fmt.Sprintf("%s: %s", msg, lastErr)
			}
			outcome.Details = append(outcome.Details, Detail{Message: msg})
		}
	}

	return outcome
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// SpecEndpoints reads the declared HTTP endpoints from an endpoints.json
// sidecar (a JSON list of paths) in blueprintDir. SPEC.yaml and SPEC.md are
// not parsed; when the sidecar is missing or invalid it returns nil, and
// RuntimeValidator then probes just "/".
func SpecEndpoints(blueprintDir string) []string {
	data, err := os.ReadFile(filepath.Join(blueprintDir, "endpoints.json"))
	if err != nil {
		return nil
	}
	var endpoints []string
	if err := json.Unmarshal(data, &endpoints); err != nil {
		return nil
	}
	return endpoints
}
