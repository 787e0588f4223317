package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
)

const latestReleaseURL = "https://api.github.com/repos/tekpress/cli/releases/latest"

// InstallMethod identifies how the CLI binary was installed.
type InstallMethod string

const (
	InstallMethodBrew    InstallMethod = "homebrew"
	InstallMethodNPM     InstallMethod = "npm"
	InstallMethodPNPM    InstallMethod = "pnpm"
	InstallMethodBun     InstallMethod = "bun"
	InstallMethodUnknown InstallMethod = "unknown"
)

// FetchLatest returns the latest release tag and its release page URL.
func FetchLatest(ctx context.Context) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latestReleaseURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d from release API", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read release response: %w", err)
	}

	tag := gjson.GetBytes(body, "tag_name").String()
	if tag == "" {
		return "", "", fmt.Errorf("release response missing tag_name")
	}
	return tag, gjson.GetBytes(body, "html_url").String(), nil
}

// IsNewerVersion reports whether latest is strictly newer than current.
// Both accept an optional "v" prefix.
func IsNewerVersion(current, latest string) (bool, error) {
	cv, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid current version %q: %w", current, err)
	}
	lv, err := semver.NewVersion(strings.TrimPrefix(latest, "v"))
	if err != nil {
		return false, fmt.Errorf("invalid latest version %q: %w", latest, err)
	}
	return lv.GreaterThan(cv), nil
}

type methodRule struct {
	method InstallMethod
	check  func(path string) bool
}

// installMethodRules returns detection rules in precedence order. Package
// manager paths are checked before Homebrew because Homebrew prefixes are
// broad enough to shadow them.
func installMethodRules() []methodRule {
	return []methodRule{
		{InstallMethodPNPM, pathMatchesPNPM},
		{InstallMethodBun, pathMatchesBun},
		{InstallMethodNPM, pathMatchesNPM},
		{InstallMethodBrew, pathMatchesHomebrew},
	}
}

// DetectInstallMethod inspects the running binary's path and returns the
// install method plus the resolved path.
func DetectInstallMethod() (InstallMethod, string) {
	path, err := os.Executable()
	if err != nil {
		return InstallMethodUnknown, ""
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	for _, r := range installMethodRules() {
		if r.check(path) {
			return r.method, path
		}
	}
	return InstallMethodUnknown, path
}

func pathMatchesNPM(path string) bool {
	return strings.Contains(path, ".npm-global") ||
		strings.Contains(path, "/.npm/") ||
		strings.Contains(path, "node_modules") ||
		strings.Contains(path, "/npm/")
}

func pathMatchesBun(path string) bool {
	return strings.Contains(path, "/.bun/")
}

func pathMatchesPNPM(path string) bool {
	return strings.Contains(path, "/pnpm/") ||
		strings.Contains(path, "/.pnpm/")
}

func pathMatchesHomebrew(path string) bool {
	return strings.Contains(path, "/homebrew/") ||
		strings.Contains(path, "/Cellar/") ||
		strings.Contains(path, "/.linuxbrew/")
}

// suggestUpgradeCommandForMethod returns the upgrade command a user should
// run for their install method. Unknown installs get the Homebrew command as
// the most common case.
func suggestUpgradeCommandForMethod(method InstallMethod) string {
	switch method {
	case InstallMethodNPM:
		return "npm i -g @tekpress/cli@latest"
	case InstallMethodPNPM:
		return "pnpm add -g @tekpress/cli@latest"
	case InstallMethodBun:
		return "bun add -g @tekpress/cli@latest"
	default:
		return "brew upgrade tekpress/tap/tekpress"
	}
}

// SuggestUpgradeCommand returns the upgrade command for the detected install.
func SuggestUpgradeCommand() string {
	method, _ := DetectInstallMethod()
	return suggestUpgradeCommandForMethod(method)
}
