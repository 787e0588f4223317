package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/pterm/pterm"
)

var outBuf bytes.Buffer

// setupStdoutCapture routes pterm output into outBuf for the duration of the
// test.
func setupStdoutCapture(t *testing.T) {
	t.Helper()
	outBuf.Reset()
	pterm.SetDefaultOutput(&outBuf)
	// SetDefaultOutput only affects printers constructed afterwards; the
	// package-level printers were initialized with os.Stdout, so point
	// their writers at the buffer explicitly.
	pterm.Info.Writer = &outBuf
	pterm.Success.Writer = &outBuf
	pterm.Warning.Writer = &outBuf
	pterm.Error.Writer = &outBuf
	pterm.DisableColor()
	t.Cleanup(func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.Info.Writer = os.Stdout
		pterm.Success.Writer = os.Stdout
		pterm.Warning.Writer = os.Stdout
		pterm.Error.Writer = os.Stdout
		pterm.EnableColor()
	})
}
