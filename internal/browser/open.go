// Package browser launches the web UI of the policy service.
package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Pages of the web UI reachable from the CLI.
var Pages = map[string]string{
	"login":     "/",
	"dashboard": "/dashboard",
	"admin":     "/admin_dashboard",
	"profile":   "/profile",
}

// PageURL joins a named page onto the web root.
func PageURL(webRoot, page string) (string, error) {
	path, ok := Pages[page]
	if !ok {
		return "", fmt.Errorf("unknown page %q", page)
	}
	u, err := url.Parse(strings.TrimRight(webRoot, "/") + path)
	if err != nil {
		return "", fmt.Errorf("parse web url: %w", err)
	}
	return u.String(), nil
}

// Command returns the launcher invocation for goos.
func Command(goos, target string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{target}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{target}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	default:
		return "", nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

// Open opens the specified URL in the user's default browser.
func Open(target string) error {
	name, args, err := Command(runtime.GOOS, target)
	if err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}
