// Package detector picks the window detector for the running session.
package detector

import (
	"fmt"
	"os"
	"time"

	"github.com/actionsum/focuslens/pkg/integrations/wayland"
	"github.com/actionsum/focuslens/pkg/integrations/x11"
	"github.com/actionsum/focuslens/pkg/window"
)

// New returns a connected detector. X11 is preferred, which also covers Wayland sessions
// running XWayland; sway and Hyprland are queried over IPC otherwise.
func New(idleThreshold time.Duration) (window.Detector, error) {
	x := x11.NewDetector(idleThreshold)
	if x.IsAvailable() {
		return x, nil
	}

	session := DetectDisplayServer()
	if session == "wayland" {
		if w := wayland.NewDetector(); w.IsAvailable() {
			return w, nil
		}
	}
	return nil, fmt.Errorf("no usable display (session: %s): %w", session, x.Err())
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
