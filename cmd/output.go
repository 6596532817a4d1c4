package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chinmay1088/rpchist/api"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// output formats
const (
	outputAuto = "auto"
	outputText = "text"
	outputJSON = "json"
)

// wantJSON reports whether raw payloads should be printed. In auto mode
// summaries are only printed to a terminal; pipes get JSON.
func (a *app) wantJSON() bool {
	switch a.output {
	case outputJSON:
		return true
	case outputText:
		return false
	default:
		return !term.IsTerminal(int(os.Stdout.Fd()))
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// requestError turns client errors into messages that say what to do next.
func (a *app) requestError(err error, what string) error {
	a.log.Debug("Request failed", zap.String("target", what), zap.Error(err))

	var transportErr *api.TransportError
	var decodeErr *api.DecodeError
	switch {
	case api.IsNotFound(err):
		return fmt.Errorf("%s not found: %w", what, err)
	case errors.As(err, &transportErr) && transportErr.Timeout():
		return fmt.Errorf("%s: timed out after %s, try a larger --timeout: %w", what, a.cfg.Timeout, err)
	case errors.As(err, &decodeErr):
		return fmt.Errorf("%s: service returned a body that is not JSON: %w", what, err)
	default:
		return fmt.Errorf("failed to fetch %s: %w", what, err)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return color.YellowString("unknown")
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatStatus(failed bool) string {
	if failed {
		return color.RedString("failed")
	}
	return color.GreenString("success")
}

// shorten abbreviates long base58 strings for table cells.
func shorten(s string, keep int) string {
	if len(s) <= 2*keep+3 {
		return s
	}
	return s[:keep] + "..." + s[len(s)-keep:]
}
