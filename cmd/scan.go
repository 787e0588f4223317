package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/tekpress/cli/internal/injector"
	"github.com/tekpress/cli/pkg/util"
)

// ScanCmd finds printable images in a page, from a local HTML file or a URL.
type ScanCmd struct {
	fetch func(ctx context.Context, target string) (io.ReadCloser, error)
}

type ScanInput struct {
	Target   string
	Annotate string
	Watch    bool
}

func (c ScanCmd) Run(ctx context.Context, in ScanInput) error {
	if in.Watch {
		return c.watch(ctx, in)
	}
	_, err := c.scanOnce(ctx, in)
	return err
}

func (c ScanCmd) scanOnce(ctx context.Context, in ScanInput) (int, error) {
	body, err := c.fetch(ctx, in.Target)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page: %w", err)
	}

	buttons := injector.Scanner{}.Scan(doc)
	if len(buttons) == 0 {
		pterm.Info.Println("No printable images found")
	} else {
		tableData := pterm.TableData{{"#", "Image URL"}}
		for i, b := range buttons {
			tableData = append(tableData, []string{
				fmt.Sprintf("%d", i+1),
				util.Truncate(b.ImageURL, 80),
			})
		}
		PrintTableNoPad(tableData, true)
		pterm.Success.Printf("Attached %d print button(s)\n", len(buttons))
	}

	if !isURL(in.Target) {
		if fi, err := os.Stat(in.Target); err == nil {
			pterm.Info.Printf("Scanned %s (%s)\n", in.Target, util.FormatBytes(fi.Size()))
		}
	}

	if in.Annotate != "" {
		out, err := os.Create(in.Annotate)
		if err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", in.Annotate, err)
		}
		defer out.Close()
		if err := html.Render(out, doc); err != nil {
			return 0, fmt.Errorf("failed to write annotated page: %w", err)
		}
		pterm.Info.Printf("Annotated page written to %s\n", in.Annotate)
	}

	return len(buttons), nil
}

// watch re-scans the file whenever its mtime changes, debounced the same way
// page mutations are.
func (c ScanCmd) watch(ctx context.Context, in ScanInput) error {
	if isURL(in.Target) {
		return fmt.Errorf("--watch only supports local files")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := injector.NewWatcher(0, func() {
		if _, err := c.scanOnce(ctx, in); err != nil {
			pterm.Error.Println(err.Error())
		}
	})
	go watcher.Run(ctx)

	pterm.Info.Printf("Watching %s (Ctrl+C to stop)\n", in.Target)
	watcher.Notify()

	var lastMod time.Time
	if fi, err := os.Stat(in.Target); err == nil {
		lastMod = fi.ModTime()
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fi, err := os.Stat(in.Target)
			if err != nil {
				continue
			}
			if fi.ModTime().After(lastMod) {
				lastMod = fi.ModTime()
				watcher.Notify()
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

func fetchTarget(ctx context.Context, target string) (io.ReadCloser, error) {
	if !isURL(target) {
		f, err := os.Open(target)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", target, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, target)
	}
	return resp.Body, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan <file-or-url>",
	Short: "Scan a page for printable images",
	Long: `Scan an HTML page for printable images and report where print buttons
would be attached. With --annotate the decorated page is written out.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("annotate", "", "Write the page with buttons attached to this file")
	scanCmd.Flags().Bool("watch", false, "Re-scan a local file when it changes")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	annotate, _ := cmd.Flags().GetString("annotate")
	watch, _ := cmd.Flags().GetBool("watch")

	c := ScanCmd{fetch: fetchTarget}
	return c.Run(cmd.Context(), ScanInput{
		Target:   args[0],
		Annotate: annotate,
		Watch:    watch,
	})
}
