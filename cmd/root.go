package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/coordinator"
	"github.com/tekpress/cli/internal/prodigi"
	"github.com/tekpress/cli/internal/session"
)

const (
	defaultIdentityURL = "https://ydzarpejlzpocvaibnpl.supabase.co"

	keyringService = "tekpress"
)

type buildMetadata struct {
	Version string
}

var metadata = buildMetadata{Version: "dev"}

// SetVersion records the release version injected at build time.
func SetVersion(v string) {
	if v != "" {
		metadata.Version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "tekpress",
	Short: "Find printable images on a page and turn them into print orders",
	Long: `tekpress scans pages for printable images, manages your sign-in, and
records print orders that are fulfilled through Prodigi.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A local .env overrides nothing already exported.
		_ = godotenv.Load()
	},
}

func init() {
	// Accept underscores in flag names, e.g. --image_url for --image-url.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// Root returns the assembled command tree for the entry point.
func Root() *cobra.Command {
	rootCmd.Version = metadata.Version
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func identityBaseURL() string {
	return strings.TrimRight(envOr("TEKPRESS_IDENTITY_URL", defaultIdentityURL), "/")
}

// newStorage prefers the OS keyring and falls back to an on-disk store when
// no keyring backend is available (headless Linux, CI).
func newStorage() session.Storage {
	ks := session.KeyringStorage{Service: keyringService}
	if _, _, err := ks.Get(session.StorageKey); err == nil {
		return ks
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return &session.FileStorage{
		Dir:        filepath.Join(dir, "tekpress"),
		Passphrase: os.Getenv("TEKPRESS_PASSPHRASE"),
	}
}

func newSessionStore() *session.Store {
	return newSessionStoreWithFlow(nil)
}

// newSessionStoreWithFlow is used by the OAuth path, which needs a loopback
// listener; every other command skips binding a port.
func newSessionStoreWithFlow(flow session.AuthFlow) *session.Store {
	return session.New(session.Config{
		IdentityURL: identityBaseURL(),
		AnonKey:     os.Getenv("TEKPRESS_IDENTITY_KEY"),
		Storage:     newStorage(),
		AuthFlow:    flow,
	})
}

// newDispatcher builds the full message path: session store, coordinator,
// bus. The session store carries an auth flow so signInWithGoogle stays
// reachable through the bus. The returned cleanup stops the bus goroutine
// and releases the flow's port.
func newDispatcher() (bus.Dispatcher, func()) {
	var flow *session.LoopbackFlow
	if f, err := session.NewLoopbackFlow(); err == nil {
		flow = f
	}

	var authFlow session.AuthFlow
	if flow != nil {
		authFlow = flow
	}
	b := bus.New(coordinator.New(newSessionStoreWithFlow(authFlow)))
	return b, func() {
		b.Close()
		if flow != nil {
			flow.Close()
		}
	}
}

func newProdigiClient() *prodigi.Client {
	return prodigi.New(os.Getenv("TEKPRESS_PRODIGI_URL"), os.Getenv("TEKPRESS_PRODIGI_KEY"))
}
