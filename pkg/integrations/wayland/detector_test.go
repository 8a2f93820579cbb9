package wayland

import (
	"errors"
	"strings"
	"testing"
)

const swayTree = `{
  "name": "root", "focused": false,
  "nodes": [{
    "name": "eDP-1", "focused": false,
    "nodes": [{
      "name": "1", "focused": false,
      "nodes": [
        {"name": "~/src", "app_id": "foot", "pid": 101, "focused": false, "nodes": []},
        {"name": "main.go - Code", "app_id": null, "pid": 202, "focused": false, "nodes": []}
      ],
      "floating_nodes": [
        {"name": "Mozilla Firefox", "app_id": null, "pid": 303, "focused": true,
         "window_properties": {"class": "firefox", "instance": "Navigator"}, "nodes": []}
      ]
    }]
  }]
}`

// fakeRunner answers commands by their name.
type fakeRunner map[string]string

func (f fakeRunner) run(name string, args ...string) ([]byte, error) {
	out, ok := f[name]
	if !ok {
		return nil, errors.New(name + ": not found")
	}
	return []byte(out), nil
}

func newTestDetector(t *testing.T, compositor string, cmds fakeRunner) *Detector {
	t.Helper()
	names := map[int]string{303: "firefox-bin", 404: "kitty"}
	return &Detector{
		compositor:  compositor,
		run:         cmds.run,
		lookPath:    func(string) (string, error) { return "", errors.New("missing") },
		processName: func(pid int) string { return names[pid] },
	}
}

func TestDetectCompositor(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "sway", env: map[string]string{"SWAYSOCK": "/run/user/1000/sway-ipc.sock"}, want: compositorSway},
		{name: "hyprland", env: map[string]string{"HYPRLAND_INSTANCE_SIGNATURE": "abc"}, want: compositorHyprland},
		{name: "other", env: map[string]string{}, want: compositorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			if got := detectCompositor(getenv); got != tt.want {
				t.Errorf("detectCompositor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSwayTree(t *testing.T) {
	info, err := parseSwayTree([]byte(swayTree))
	if err != nil {
		t.Fatalf("parseSwayTree() error = %v", err)
	}
	if info.AppName != "firefox" || info.WindowTitle != "Mozilla Firefox" || info.PID != 303 {
		t.Errorf("parseSwayTree() = %+v", info)
	}

	if _, err := parseSwayTree([]byte(`{"name": "root", "focused": true, "nodes": []}`)); err == nil {
		t.Error("parseSwayTree() with only the root focused should fail")
	}
	if _, err := parseSwayTree([]byte(`not json`)); err == nil {
		t.Error("parseSwayTree() on invalid JSON should fail")
	}
}

func TestParseHyprlandWindow(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantApp string
		wantErr bool
	}{
		{name: "class", in: `{"class": "kitty", "initialClass": "kitty", "title": "vim", "pid": 404}`, wantApp: "kitty"},
		{name: "initial class only", in: `{"class": "", "initialClass": "Slack", "title": "general", "pid": 9}`, wantApp: "Slack"},
		{name: "empty desktop", in: `{}`, wantErr: true},
		{name: "garbage", in: `Invalid`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseHyprlandWindow([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHyprlandWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && info.AppName != tt.wantApp {
				t.Errorf("AppName = %q, want %q", info.AppName, tt.wantApp)
			}
		})
	}
}

func TestGetFocusedWindow(t *testing.T) {
	t.Run("sway", func(t *testing.T) {
		d := newTestDetector(t, compositorSway, fakeRunner{"swaymsg": swayTree})
		info, err := d.GetFocusedWindow()
		if err != nil {
			t.Fatalf("GetFocusedWindow() error = %v", err)
		}
		if info.ProcessName != "firefox-bin" || info.DisplayServer != "wayland" {
			t.Errorf("GetFocusedWindow() = %+v", info)
		}
	})

	t.Run("hyprland without class falls back to process", func(t *testing.T) {
		d := newTestDetector(t, compositorHyprland, fakeRunner{"hyprctl": `{"class": "", "title": "htop", "pid": 404}`})
		info, err := d.GetFocusedWindow()
		if err != nil {
			t.Fatalf("GetFocusedWindow() error = %v", err)
		}
		if info.AppName != "kitty" {
			t.Errorf("AppName = %q, want kitty", info.AppName)
		}
	})

	t.Run("tool failure", func(t *testing.T) {
		d := newTestDetector(t, compositorSway, fakeRunner{})
		if _, err := d.GetFocusedWindow(); err == nil || !strings.Contains(err.Error(), "swaymsg") {
			t.Errorf("GetFocusedWindow() error = %v, want swaymsg failure", err)
		}
	})

	t.Run("unsupported compositor", func(t *testing.T) {
		d := newTestDetector(t, compositorUnknown, fakeRunner{})
		if _, err := d.GetFocusedWindow(); err == nil {
			t.Error("GetFocusedWindow() on unknown compositor should fail")
		}
		if d.IsAvailable() {
			t.Error("IsAvailable() = true for unknown compositor")
		}
	})
}

func TestGetIdleInfo(t *testing.T) {
	tests := []struct {
		name       string
		cmds       fakeRunner
		wantLocked bool
	}{
		{name: "locked", cmds: fakeRunner{"loginctl": "LockedHint=yes\n"}, wantLocked: true},
		{name: "unlocked", cmds: fakeRunner{"loginctl": "LockedHint=no\n"}},
		{name: "loginctl missing", cmds: fakeRunner{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, compositorSway, tt.cmds)
			info, err := d.GetIdleInfo()
			if err != nil {
				t.Fatalf("GetIdleInfo() error = %v", err)
			}
			if info.IsLocked != tt.wantLocked || info.IsIdle || info.IdleTime != 0 {
				t.Errorf("GetIdleInfo() = %+v, want locked=%v and never idle", info, tt.wantLocked)
			}
			if info.Away() != tt.wantLocked {
				t.Errorf("Away() = %v, want %v", info.Away(), tt.wantLocked)
			}
		})
	}
}
