// Package wayland reads the focused window from compositors that expose it over their IPC tools.
package wayland

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/actionsum/focuslens/pkg/window"
)

const (
	displayServer = "wayland"

	compositorSway     = "sway"
	compositorHyprland = "hyprland"
	compositorUnknown  = "unknown"
)

// runner executes an external command and returns its stdout.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Detector implements window.Detector for sway and Hyprland. Neither exposes input idle
// time, so only the session lock hint is reported.
type Detector struct {
	compositor  string
	run         runner
	lookPath    func(string) (string, error)
	processName func(pid int) string
	sessionID   string
}

var _ window.Detector = (*Detector)(nil)

func NewDetector() *Detector {
	return &Detector{
		compositor:  detectCompositor(os.Getenv),
		run:         execRunner,
		lookPath:    exec.LookPath,
		processName: window.ProcessName,
		sessionID:   os.Getenv("XDG_SESSION_ID"),
	}
}

// detectCompositor relies on the IPC socket variables each compositor exports to its clients.
func detectCompositor(getenv func(string) string) string {
	switch {
	case getenv("SWAYSOCK") != "":
		return compositorSway
	case getenv("HYPRLAND_INSTANCE_SIGNATURE") != "":
		return compositorHyprland
	default:
		return compositorUnknown
	}
}

func (d *Detector) IsAvailable() bool {
	tool := d.ipcTool()
	if tool == "" {
		return false
	}
	_, err := d.lookPath(tool)
	return err == nil
}

func (d *Detector) ipcTool() string {
	switch d.compositor {
	case compositorSway:
		return "swaymsg"
	case compositorHyprland:
		return "hyprctl"
	default:
		return ""
	}
}

func (d *Detector) GetDisplayServer() string {
	return displayServer
}

func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	var (
		info *window.WindowInfo
		err  error
	)

	switch d.compositor {
	case compositorSway:
		out, runErr := d.run("swaymsg", "-t", "get_tree", "-r")
		if runErr != nil {
			return nil, fmt.Errorf("failed to execute swaymsg: %w", runErr)
		}
		info, err = parseSwayTree(out)
	case compositorHyprland:
		out, runErr := d.run("hyprctl", "activewindow", "-j")
		if runErr != nil {
			return nil, fmt.Errorf("failed to execute hyprctl: %w", runErr)
		}
		info, err = parseHyprlandWindow(out)
	default:
		return nil, fmt.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	info.DisplayServer = displayServer
	info.ProcessName = d.processName(info.PID)
	if info.AppName == "" {
		info.AppName = info.ProcessName
	}
	if info.AppName == "" {
		info.AppName = "Unknown"
	}
	return info, nil
}

// GetIdleInfo reports only the logind lock state; idle time is always zero.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	session := d.sessionID
	if session == "" {
		session = "self"
	}

	locked := false
	if out, err := d.run("loginctl", "show-session", session, "-p", "LockedHint"); err == nil {
		locked = parseLockedHint(out)
	}
	return window.NewIdleInfo(0, locked, 0), nil
}

func (d *Detector) Close() error {
	return nil
}

type swayWindowProperties struct {
	Class    string `json:"class"`
	Instance string `json:"instance"`
}

type swayNode struct {
	Name             string                `json:"name"`
	AppID            string                `json:"app_id"`
	PID              int                   `json:"pid"`
	Focused          bool                  `json:"focused"`
	WindowProperties *swayWindowProperties `json:"window_properties"`
	Nodes            []swayNode            `json:"nodes"`
	FloatingNodes    []swayNode            `json:"floating_nodes"`
}

func findFocused(n *swayNode) *swayNode {
	if n.Focused {
		return n
	}
	for i := range n.Nodes {
		if f := findFocused(&n.Nodes[i]); f != nil {
			return f
		}
	}
	for i := range n.FloatingNodes {
		if f := findFocused(&n.FloatingNodes[i]); f != nil {
			return f
		}
	}
	return nil
}

// parseSwayTree finds the focused node in `swaymsg -t get_tree` output. Native Wayland clients
// carry app_id; XWayland clients carry window_properties.class instead.
func parseSwayTree(data []byte) (*window.WindowInfo, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse sway tree: %w", err)
	}

	node := findFocused(&root)
	if node == nil || (node.PID == 0 && node.AppID == "" && node.WindowProperties == nil) {
		return nil, fmt.Errorf("no focused window in sway tree")
	}

	app := node.AppID
	if app == "" && node.WindowProperties != nil {
		app = node.WindowProperties.Class
		if app == "" {
			app = node.WindowProperties.Instance
		}
	}

	return &window.WindowInfo{
		AppName:     app,
		WindowTitle: node.Name,
		PID:         node.PID,
	}, nil
}

type hyprlandWindow struct {
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	Title        string `json:"title"`
	PID          int    `json:"pid"`
}

// parseHyprlandWindow decodes `hyprctl activewindow -j`. An empty desktop prints "{}".
func parseHyprlandWindow(data []byte) (*window.WindowInfo, error) {
	var w hyprlandWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse hyprctl output: %w", err)
	}
	if w.PID <= 0 && w.Class == "" && w.InitialClass == "" {
		return nil, fmt.Errorf("no active window")
	}

	app := w.Class
	if app == "" {
		app = w.InitialClass
	}
	return &window.WindowInfo{
		AppName:     app,
		WindowTitle: w.Title,
		PID:         w.PID,
	}, nil
}

func parseLockedHint(out []byte) bool {
	return strings.TrimSpace(string(out)) == "LockedHint=yes"
}
