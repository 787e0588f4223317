package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/popup"
)

// PopupCmd renders the popup surface: auth prompt or order dashboard.
type PopupCmd struct {
	dispatcher bus.Dispatcher
}

func (c PopupCmd) Show(ctx context.Context) error {
	controller := popup.NewController(c.dispatcher)
	if err := controller.Open(ctx); err != nil {
		return err
	}
	popup.Render(os.Stdout, controller.View())
	return nil
}

var popupCmd = &cobra.Command{
	Use:   "popup",
	Short: "Show the dashboard for the signed-in user",
	Long:  "Show the popup surface: a sign-in prompt when signed out, your print orders when signed in.",
	Args:  cobra.NoArgs,
	RunE:  runPopup,
}

func init() {
	rootCmd.AddCommand(popupCmd)
}

func runPopup(cmd *cobra.Command, args []string) error {
	dispatcher, cleanup := newDispatcher()
	defer cleanup()

	c := PopupCmd{dispatcher: dispatcher}
	return c.Show(cmd.Context())
}
