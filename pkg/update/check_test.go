package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestUpgradeCommandForMethod(t *testing.T) {
	tests := []struct {
		method   InstallMethod
		expected string
	}{
		{InstallMethodBrew, "brew upgrade tekpress/tap/tekpress"},
		{InstallMethodNPM, "npm i -g @tekpress/cli@latest"},
		{InstallMethodPNPM, "pnpm add -g @tekpress/cli@latest"},
		{InstallMethodBun, "bun add -g @tekpress/cli@latest"},
		{InstallMethodUnknown, "brew upgrade tekpress/tap/tekpress"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.expected, suggestUpgradeCommandForMethod(tt.method))
		})
	}
}

func TestPathMatchesNPM(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/home/user/.npm-global/bin/tekpress", true},
		{"/home/user/.npm/bin/tekpress", true},
		{"/usr/local/lib/node_modules/.bin/tekpress", true},
		{"/home/user/.local/share/npm/bin/tekpress", true},
		{"/opt/homebrew/bin/tekpress", false},
		{"/home/user/.bun/bin/tekpress", false},
		{"/home/user/.local/share/pnpm/tekpress", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesNPM(tt.path))
		})
	}
}

func TestPathMatchesBun(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/home/user/.bun/bin/tekpress", true},
		{"/home/user/.npm-global/bin/tekpress", false},
		{"/opt/homebrew/bin/tekpress", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesBun(tt.path))
		})
	}
}

func TestPathMatchesPNPM(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/home/user/.local/share/pnpm/tekpress", true},
		{"/home/user/.pnpm/global/tekpress", true},
		{"/home/user/.npm-global/bin/tekpress", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesPNPM(tt.path))
		})
	}
}

func TestPathMatchesHomebrew(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/opt/homebrew/bin/tekpress", true},
		{"/usr/local/Cellar/tekpress/1.0/bin/tekpress", true},
		{"/home/linuxbrew/.linuxbrew/Cellar/tekpress/1.0/bin/tekpress", true},
		{"/home/user/.npm-global/bin/tekpress", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, pathMatchesHomebrew(tt.path))
		})
	}
}

func TestInstallMethodRulesPathPrecedence(t *testing.T) {
	rules := installMethodRules()

	detect := func(path string) InstallMethod {
		for _, r := range rules {
			if r.check(path) {
				return r.method
			}
		}
		return InstallMethodUnknown
	}

	assert.Equal(t, InstallMethodNPM, detect("/home/user/.npm-global/bin/tekpress"))
	assert.Equal(t, InstallMethodBun, detect("/home/user/.bun/bin/tekpress"))
	assert.Equal(t, InstallMethodBrew, detect("/opt/homebrew/bin/tekpress"))
	assert.Equal(t, InstallMethodPNPM, detect("/home/user/.local/share/pnpm/tekpress"))
	assert.Equal(t, InstallMethodUnknown, detect("/usr/local/bin/tekpress"))
}

func TestIsNewerVersion(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		newer   bool
	}{
		{"v1.2.3", "v1.2.4", true},
		{"1.2.3", "v2.0.0", true},
		{"v1.2.3", "v1.2.3", false},
		{"v1.3.0", "v1.2.9", false},
	}
	for _, tt := range tests {
		newer, err := IsNewerVersion(tt.current, tt.latest)
		require.NoError(t, err)
		assert.Equal(t, tt.newer, newer, "%s vs %s", tt.current, tt.latest)
	}

	_, err := IsNewerVersion("dev", "v1.0.0")
	assert.Error(t, err)
}
