package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/actionsum/focuslens/internal/ports"
	"github.com/actionsum/focuslens/internal/reporter"
)

// withApp runs fn against a freshly opened AppContext. Logs go to stderr so they never mix
// with JSON output.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *AppContext) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewAppContext(ctx, cfg, newLogger(cfg, os.Stderr), false)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	return fn(ctx, app)
}

// render writes v as indented JSON when asJSON is set, otherwise the text rendering.
func render(out io.Writer, asJSON bool, v any, text func() string) error {
	if asJSON {
		s, err := reporter.FormatJSON(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, s)
		return err
	}
	_, err := fmt.Fprint(out, text())
	return err
}

// lastDays covers today plus the previous days-1 calendar days in loc.
func lastDays(now time.Time, loc *time.Location, days int) ports.ActivityFilter {
	if days < 1 {
		days = 1
	}
	y, m, d := now.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	return ports.ActivityFilter{Start: start, End: now}
}

func validateDays(days int) error {
	if days < 1 || days > 365 {
		return fmt.Errorf("--days must be between 1 and 365, got %d", days)
	}
	return nil
}

// confirm reads a yes/no answer from in.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (yes/no): ", prompt)
	var response string
	if _, err := fmt.Fscanln(in, &response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y"
}
