package popup

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
)

var (
	avatarStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("255"))

	emailStyle = lipgloss.NewStyle().Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("203"))
)

// Render writes the view to w: the auth prompt when signed out, the avatar
// header plus order table when signed in. Transient errors render above
// either view.
func Render(w io.Writer, v View) {
	if v.ErrorText != "" {
		fmt.Fprintln(w, errorStyle.Render(v.ErrorText))
	}

	if !v.Authenticated {
		pterm.Info.WithWriter(w).Println("Sign in to print your saved images")
		fmt.Fprintln(w, "  tekpress auth login --email you@example.com")
		fmt.Fprintln(w, "  tekpress auth signup --email you@example.com")
		fmt.Fprintln(w, "  tekpress auth google")
		return
	}

	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Center,
		avatarStyle.Render(v.Avatar), " ", emailStyle.Render(v.Email)))
	fmt.Fprintln(w)

	if len(v.Orders) == 0 {
		pterm.Info.WithWriter(w).Println("No print orders yet")
		return
	}

	data := pterm.TableData{{"IMAGE", "PRODUCT", "ORDERED", "STATUS"}}
	data = append(data, lo.Map(v.Orders, func(o OrderView, _ int) []string {
		return []string{o.ImageURL, o.ProductType, o.CreatedAt, o.Status}
	})...)
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render(); err != nil {
		pterm.Error.WithWriter(w).Println(err.Error())
	}
}
