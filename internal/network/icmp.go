package network

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-ping/ping"
)

// icmpProbe sends count echo requests and succeeds if any reply arrives.
// Raw sockets need root, which the MAC change already requires.
func icmpProbe(target string, count int, perEcho time.Duration, logger *slog.Logger) func(context.Context) bool {
	return func(ctx context.Context) bool {
		p, err := ping.NewPinger(target)
		if err != nil {
			logger.Debug("resolving probe target", "target", target, "error", err)
			return false
		}
		p.Count = count
		p.Timeout = time.Duration(count) * perEcho
		p.SetPrivileged(true)

		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				p.Stop()
			case <-done:
			}
		}()

		if err := p.Run(); err != nil {
			logger.Debug("icmp probe", "target", target, "error", err)
			return false
		}
		return p.Statistics().PacketsRecv > 0
	}
}
