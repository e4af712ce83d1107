// Package discovery advertises and finds whiteboard relays on the local network.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_whiteboard._tcp"

// Relay is one relay found on the network.
type Relay struct {
	Name string
	Addr string
	Room string
}

// Advertise publishes a relay listening on port serving room. Shut the returned server
// down to stop advertising.
func Advertise(port int, room string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, []string{"room=" + room})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

func roomOf(fields []string) string {
	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, "room="); ok {
			return v
		}
	}
	return ""
}

// entryToRelay ignores entries without an IPv4 address or port.
func entryToRelay(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Relay{}, false
	}
	return Relay{Name: e.Name, Addr: fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port), Room: roomOf(e.InfoFields)}, true
}

// Browse queries the network for relays until timeout and returns the first relay
// serving room (any room when room is empty).
func Browse(ctx context.Context, room string, timeout time.Duration) (Relay, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan Relay, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			r, ok := entryToRelay(e)
			if !ok || (room != "" && r.Room != room) {
				continue
			}
			select {
			case found <- r:
			default:
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return Relay{}, fmt.Errorf("failed to browse: %w", err)
	}

	select {
	case r := <-found:
		slog.Info("discovered relay", "name", r.Name, "addr", r.Addr, "room", r.Room)
		return r, nil
	case <-ctx.Done():
		return Relay{}, ctx.Err()
	default:
		return Relay{}, fmt.Errorf("no relay for room %q found", room)
	}
}
