// Package discovery advertises the ingest endpoint on the local network so
// gateways on the site LAN can find the service without a fixed address.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_thermowatch._tcp"
	Domain      = "local."
	IngestPath  = "/api/ingest"
)

// TXTRecords describes the service to browsers.
func TXTRecords(version string, keyRequired bool) []string {
	auth := "none"
	if keyRequired {
		auth = "key"
	}
	return []string{
		"path=" + IngestPath,
		"auth=" + auth,
		"version=" + version,
	}
}

// InstanceName picks the advertised instance name, defaulting to the host name.
func InstanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "thermowatch"
	}
	return "thermowatch-" + host
}

// Advertise registers the service and keeps it registered until ctx is done.
func Advertise(ctx context.Context, port int, txt []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	instance := InstanceName()
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logger.Info("Advertising service over mDNS", "instance", instance, "type", ServiceType, "port", port)

	<-ctx.Done()
	server.Shutdown()
	logger.Debug("mDNS advertisement withdrawn", "instance", instance)
	return nil
}

// Instance is a thermowatch service found on the network.
type Instance struct {
	Name string   `json:"name"`
	Host string   `json:"host"`
	Port int      `json:"port"`
	IPv4 []string `json:"ipv4"`
	TXT  []string `json:"txt"`
}

// Browse lists services answering within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]Instance, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for services: %w", err)
	}

	instances := []Instance{}
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return instances, nil
			}
			instances = append(instances, fromEntry(entry))
		case <-ctx.Done():
			return instances, nil
		}
	}
}

func fromEntry(entry *zeroconf.ServiceEntry) Instance {
	inst := Instance{
		Name: entry.Instance,
		Host: entry.HostName,
		Port: entry.Port,
		TXT:  entry.Text,
	}
	for _, ip := range entry.AddrIPv4 {
		inst.IPv4 = append(inst.IPv4, ip.String())
	}
	return inst
}
