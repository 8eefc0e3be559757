package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/sznuper/linkguard/internal/command"
	"github.com/sznuper/linkguard/internal/wait"
)

// Defaults mirror `ping -c 3 -W 2 8.8.8.8` and a 90s settle window after a
// MAC change.
const (
	DefaultTarget        = "8.8.8.8"
	DefaultPingCount     = 3
	DefaultPingTimeout   = 2 * time.Second
	DefaultSettleTimeout = 90 * time.Second
)

// ErrNoConnectivity is returned by ApplyMAC when the address was changed but
// the link did not come back within the settle timeout.
var ErrNoConnectivity = errors.New("connectivity did not return after mac change")

// Options configures an Adapter.
type Options struct {
	Interface     string
	Target        string
	PingCount     int
	PingTimeout   time.Duration
	PollInterval  time.Duration
	SettleTimeout time.Duration
}

// Adapter manages a single Linux network interface.
type Adapter struct {
	opts   Options
	poller wait.Poller
	runner command.Runner
	probe  func(ctx context.Context) bool
	addrs  func(iface string) ([]net.Addr, error)
	lookup func(name string) bool
	logger *slog.Logger
}

// New creates an Adapter probing reachability with ICMP echo requests.
func New(opts Options, logger *slog.Logger) *Adapter {
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	if opts.PingCount <= 0 {
		opts.PingCount = DefaultPingCount
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = DefaultPingTimeout
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = DefaultSettleTimeout
	}

	a := &Adapter{
		opts:   opts,
		poller: wait.New(opts.PollInterval),
		runner: command.Default,
		addrs:  interfaceAddrs,
		lookup: command.Available,
		logger: logger.With("interface", opts.Interface),
	}
	a.probe = icmpProbe(opts.Target, opts.PingCount, opts.PingTimeout, a.logger)
	return a
}

// PingOK reports whether the probe target answers.
func (a *Adapter) PingOK(ctx context.Context) bool {
	ok := a.probe(ctx)
	a.logger.Debug("reachability probe", "target", a.opts.Target, "ok", ok)
	return ok
}

// WaitConnectivity polls PingOK until it succeeds or timeout elapses.
func (a *Adapter) WaitConnectivity(ctx context.Context, timeout time.Duration) bool {
	a.logger.Info("waiting for connectivity", "timeout", timeout)
	return a.poller.Until(ctx, timeout, a.PingOK)
}

// IP returns the first IPv4 address assigned to the interface.
func (a *Adapter) IP() (string, bool) {
	addrs, err := a.addrs(a.opts.Interface)
	if err != nil {
		a.logger.Debug("listing interface addresses", "error", err)
		return "", false
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4.String(), true
		}
	}
	return "", false
}

// ApplyMAC sets the interface hardware address, preferring a NetworkManager
// cloned address and falling back to ip link, then waits for the link to
// come back.
func (a *Adapter) ApplyMAC(ctx context.Context, mac string) error {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return fmt.Errorf("invalid mac %q: %w", mac, err)
	}
	addr := strings.ToUpper(hw.String())
	a.logger.Info("changing mac", "mac", addr)

	applied, nmErr := a.nmcliSetClonedMAC(ctx, addr)
	if nmErr != nil {
		a.logger.Debug("nmcli unavailable for mac change", "error", nmErr)
	}
	if !applied {
		if err := a.iplinkSetMAC(ctx, addr); err != nil {
			return fmt.Errorf("applying mac: %w", err)
		}
	}

	if !a.WaitConnectivity(ctx, a.opts.SettleTimeout) {
		return ErrNoConnectivity
	}
	a.logger.Info("network back after mac change", "mac", addr)
	return nil
}

func (a *Adapter) nmcliSetClonedMAC(ctx context.Context, mac string) (bool, error) {
	if !a.lookup("nmcli") {
		return false, errors.New("nmcli not installed")
	}

	out, err := a.run(ctx, "nmcli", "-t", "-f", "NAME,DEVICE", "connection", "show", "--active")
	if err != nil {
		return false, err
	}
	conn := activeConnection(out, a.opts.Interface)
	if conn == "" {
		return false, fmt.Errorf("no active connection on %s", a.opts.Interface)
	}

	prop := "802-ethernet.cloned-mac-address"
	if info, err := a.run(ctx, "nmcli", "-t", "-f", "GENERAL.TYPE", "device", "show", a.opts.Interface); err == nil && strings.Contains(info, "wifi") {
		prop = "802-11-wireless.cloned-mac-address"
	}

	if _, err := a.run(ctx, "nmcli", "connection", "modify", conn, prop, mac); err != nil {
		return false, err
	}
	_, _ = a.run(ctx, "nmcli", "connection", "down", conn)
	_ = a.poller.Sleep(ctx, 2*time.Second)
	if _, err := a.run(ctx, "nmcli", "connection", "up", conn); err != nil {
		a.logger.Warn("nmcli connection up", "connection", conn, "error", err)
	}
	return true, nil
}

func (a *Adapter) iplinkSetMAC(ctx context.Context, mac string) error {
	iface := a.opts.Interface
	_, _ = a.run(ctx, "ip", "link", "set", iface, "down")
	_, setErr := a.run(ctx, "ip", "link", "set", "dev", iface, "address", mac)
	_, _ = a.run(ctx, "ip", "link", "set", iface, "up")
	if setErr != nil {
		return fmt.Errorf("ip link set dev %s address %s: %w", iface, mac, setErr)
	}
	return nil
}

// run executes a command and turns a non-zero exit into an error carrying
// its stderr.
func (a *Adapter) run(ctx context.Context, name string, args ...string) (string, error) {
	res, err := a.runner.Run(ctx, command.Opts{Name: name, Args: args, Timeout: 30 * time.Second})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return res.Stdout, fmt.Errorf("%s exited %d: %s", name, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// activeConnection finds the connection bound to iface in
// `nmcli -t -f NAME,DEVICE` output. Colons inside names arrive escaped.
func activeConnection(out, iface string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		i := strings.LastIndex(line, ":")
		if i <= 0 {
			continue
		}
		if line[i+1:] == iface {
			return strings.ReplaceAll(line[:i], `\:`, ":")
		}
	}
	return ""
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return ifc.Addrs()
}
