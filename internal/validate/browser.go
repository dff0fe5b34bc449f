package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserValidator loads the running server's root page in a headless
// Chromium instance and confirms it rendered without a JS console error,
// the opt-in browser smoke-check spec §4.12 allows alongside the plain
// HTTP runtime probe. Modeled on the pack's rod launcher.New()/rod.New()
// connect sequence (internal/browser.SessionManager).
type BrowserValidator struct {
	URL     string
	Timeout time.Duration
}

func (BrowserValidator) Name() string { return "browser" }

func (v BrowserValidator) Validate(root string) Outcome {
	outcome := Outcome{Name: "browser", Passed: true}
	if v.URL == "" {
		return outcome
	}

	timeout := v.Timeout
	if timeout == 0 {
		timeout = RuntimeTimeout
	}

	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{Message: fmt.Sprintf("launching headless browser: %s", err)})
		return outcome
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		outcome.Passed = false
		outcome.Details = append(outcome.Details, Detail{Message: fmt.Sprintf("connecting to browser: %s", err)})
		return outcome
	}
	defer browser.MustClose()

	var consoleErrors []string
	page := browser.MustPage().Timeout(timeout)
	stopListening := page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		if e.Type == proto.RuntimeConsoleAPICalledTypeError {
			consoleErrors = append(consoleErrors, formatConsoleArgs(e.Args))
		}
	})
	defer stopListening()

	page.MustNavigate(v.URL).MustWaitLoad()
	time.Sleep(200 * time.Millisecond) // let any async console.error calls land

	if len(consoleErrors) > 0 {
		outcome.Passed = false
		for _, e := range consoleErrors {
			outcome.Details = append(outcome.Details, Detail{Message: "console error: " + e})
		}
	}
	return outcome
}

func formatConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}
