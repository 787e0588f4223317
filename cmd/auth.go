package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/tekpress/cli/internal/session"
	"github.com/tekpress/cli/pkg/util"
)

// SessionService defines the subset of the session store that the auth
// commands use.
type SessionService interface {
	Init(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) (json.RawMessage, error)
	SignUp(ctx context.Context, email, password string) (json.RawMessage, error)
	SignInWithOAuth(ctx context.Context, provider string) (*session.OAuthResult, error)
	SignOut(ctx context.Context) error
	GetUser(ctx context.Context) (json.RawMessage, error)
	IsAuthenticated() bool
	Current() (session.Session, bool)
}

// AuthCmd handles authentication operations independent of cobra.
type AuthCmd struct {
	svc SessionService
}

type AuthLoginInput struct {
	Email    string
	Password string
}

type AuthSignupInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

func (c AuthCmd) Login(ctx context.Context, in AuthLoginInput) error {
	if in.Email == "" {
		return fmt.Errorf("--email is required")
	}
	if err := c.svc.Init(ctx); err != nil {
		return err
	}

	body, err := c.svc.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}
	if !gjson.GetBytes(body, "access_token").Exists() {
		msg := util.FirstOrDash(
			gjson.GetBytes(body, "error_description").String(),
			gjson.GetBytes(body, "msg").String(),
		)
		pterm.Error.Printf("Sign in failed: %s\n", msg)
		return fmt.Errorf("sign in rejected")
	}

	pterm.Success.Printf("Signed in as %s\n", in.Email)
	return nil
}

func (c AuthCmd) Signup(ctx context.Context, in AuthSignupInput) error {
	if in.Email == "" {
		return fmt.Errorf("--email is required")
	}
	if in.Password != in.ConfirmPassword {
		return fmt.Errorf("passwords do not match")
	}
	if err := c.svc.Init(ctx); err != nil {
		return err
	}

	body, err := c.svc.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}
	if gjson.GetBytes(body, "access_token").Exists() {
		pterm.Success.Printf("Account created, signed in as %s\n", in.Email)
		return nil
	}
	if msg := gjson.GetBytes(body, "error_description").String(); msg != "" {
		pterm.Error.Printf("Sign up failed: %s\n", msg)
		return fmt.Errorf("sign up rejected")
	}

	// No token and no error means the backend wants email confirmation first.
	pterm.Info.Printf("Account created. Check %s for a confirmation link, then sign in.\n", in.Email)
	return nil
}

func (c AuthCmd) Google(ctx context.Context) error {
	if err := c.svc.Init(ctx); err != nil {
		return err
	}

	pterm.Info.Println("Opening your browser to sign in with Google...")

	result, err := c.svc.SignInWithOAuth(ctx, "google")
	if err != nil {
		return fmt.Errorf("google sign in failed: %w", err)
	}

	email := gjson.GetBytes(result.User, "email").String()
	pterm.Success.Printf("Signed in as %s\n", util.OrDash(email))
	return nil
}

func (c AuthCmd) Logout(ctx context.Context) error {
	if err := c.svc.Init(ctx); err != nil {
		return err
	}
	if !c.svc.IsAuthenticated() {
		pterm.Info.Println("Not signed in")
		return nil
	}
	if err := c.svc.SignOut(ctx); err != nil {
		pterm.Warning.Printf("Backend sign out failed (%v), local session cleared\n", err)
		return nil
	}
	pterm.Success.Println("Signed out")
	return nil
}

func (c AuthCmd) Status(ctx context.Context) error {
	if err := c.svc.Init(ctx); err != nil {
		return err
	}
	if !c.svc.IsAuthenticated() {
		pterm.Info.Println("Not signed in")
		return nil
	}

	user, err := c.svc.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	tableData := pterm.TableData{
		{"Property", "Value"},
		{"Email", util.OrDash(gjson.GetBytes(user, "email").String())},
		{"User ID", util.OrDash(gjson.GetBytes(user, "id").String())},
	}
	if provider := gjson.GetBytes(user, "app_metadata.provider").String(); provider != "" {
		tableData = append(tableData, []string{"Provider", provider})
	}
	if sess, ok := c.svc.Current(); ok {
		if expiry := tokenExpiry(sess.AccessToken); !expiry.IsZero() {
			tableData = append(tableData, []string{"Token Expires", expiry.Local().Format(time.RFC1123)})
		}
	}

	PrintTableNoPad(tableData, true)
	return nil
}

// tokenExpiry reads the exp claim for display only. The token is not
// verified here; the backend is the authority on validity.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// --- Cobra wiring ---

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your tekpress sign-in",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authSignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runAuthSignup,
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Sign in with Google",
	Long:  "Sign in with Google. Opens a browser window and completes the flow on a local callback.",
	Args:  cobra.NoArgs,
	RunE:  runAuthGoogle,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().String("email", "", "Account email (required)")
	authLoginCmd.Flags().String("password", "", "Account password (prompted if omitted)")
	_ = authLoginCmd.MarkFlagRequired("email")

	authSignupCmd.Flags().String("email", "", "Account email (required)")
	authSignupCmd.Flags().String("password", "", "Account password (prompted if omitted)")
	authSignupCmd.Flags().String("confirm-password", "", "Password confirmation (prompted if omitted)")
	_ = authSignupCmd.MarkFlagRequired("email")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authSignupCmd)
	authCmd.AddCommand(authGoogleCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	rootCmd.AddCommand(authCmd)
}

func promptPassword(label string) (string, error) {
	return pterm.DefaultInteractiveTextInput.WithMask("*").Show(label)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	if password == "" {
		var err error
		if password, err = promptPassword("Password"); err != nil {
			return err
		}
	}

	c := AuthCmd{svc: newSessionStore()}
	return c.Login(cmd.Context(), AuthLoginInput{Email: email, Password: password})
}

func runAuthSignup(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	confirm, _ := cmd.Flags().GetString("confirm-password")

	var err error
	if password == "" {
		if password, err = promptPassword("Password"); err != nil {
			return err
		}
	}
	if confirm == "" {
		if confirm, err = promptPassword("Confirm password"); err != nil {
			return err
		}
	}

	c := AuthCmd{svc: newSessionStore()}
	return c.Signup(cmd.Context(), AuthSignupInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	})
}

func runAuthGoogle(cmd *cobra.Command, args []string) error {
	flow, err := session.NewLoopbackFlow()
	if err != nil {
		return err
	}
	defer flow.Close()

	c := AuthCmd{svc: newSessionStoreWithFlow(flow)}
	return c.Google(cmd.Context())
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	c := AuthCmd{svc: newSessionStore()}
	return c.Logout(cmd.Context())
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	c := AuthCmd{svc: newSessionStore()}
	return c.Status(cmd.Context())
}
