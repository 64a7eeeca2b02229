package network

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Link joins and checks the wireless network.
type Link interface {
	Join(ctx context.Context, ssid, password string) error
	Connected(ctx context.Context) bool
}

// runner executes a command and returns its combined output.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NMCLILink drives NetworkManager through its command line client.
type NMCLILink struct {
	iface string
	run   runner
}

// NewNMCLILink returns a link bound to iface; an empty iface lets
// NetworkManager pick the wireless device.
func NewNMCLILink(iface string) *NMCLILink {
	return &NMCLILink{iface: iface, run: execRunner}
}

func (l *NMCLILink) Join(ctx context.Context, ssid, password string) error {
	if ssid == "" {
		return fmt.Errorf("nmcli: no ssid configured")
	}
	args := []string{"dev", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	if l.iface != "" {
		args = append(args, "ifname", l.iface)
	}
	out, err := l.run(ctx, "nmcli", args...)
	if err != nil {
		return fmt.Errorf("nmcli connect %q: %w: %s", ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (l *NMCLILink) Connected(ctx context.Context) bool {
	out, err := l.run(ctx, "nmcli", "-t", "-f", "STATE", "general")
	if err != nil {
		return false
	}
	return bytes.Equal(bytes.TrimSpace(out), []byte("connected"))
}

// AlwaysUp is the link used by the simulator and by hosts whose network is
// managed elsewhere.
type AlwaysUp struct{}

func (AlwaysUp) Join(context.Context, string, string) error { return nil }
func (AlwaysUp) Connected(context.Context) bool { return true }
