package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// mDNS service parameters.
const (
	ServiceType = "_fsuipc._tcp"
	Domain      = "local."

	// ProtocolVersion is advertised in the "ver" TXT record.
	ProtocolVersion = "1"
)

// TXT record keys.
const (
	TXTKeyVersion = "ver"
	TXTKeyName    = "name"
)

// ErrNotFound is returned by Find when no bridge answered.
var ErrNotFound = errors.New("no bridge found")

// AdvertiseInfo describes an advertised bridge.
type AdvertiseInfo struct {
	// Instance is the mDNS instance name.
	Instance string

	// Port is the bridge TCP port. Default DefaultPort.
	Port int

	// Interface restricts advertising to one interface (optional).
	Interface string
}

// Advertiser is a registered mDNS service.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Advertise registers a bridge over mDNS until Shutdown.
func Advertise(info AdvertiseInfo) (*Advertiser, error) {
	port := info.Port
	if port == 0 {
		port = DefaultPort
	}

	txt := TXTRecordMap{
		TXTKeyVersion: ProtocolVersion,
		TXTKeyName:    info.Instance,
	}

	server, err := zeroconf.Register(
		info.Instance,
		ServiceType,
		Domain,
		port,
		txt.Strings(),
		interfaces(info.Interface),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register bridge service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement. Safe to call more than once.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Service is a discovered bridge.
type Service struct {
	Instance  string
	Host      string
	Port      int
	Addresses []string
	Name      string
	Version   string
}

// Address returns host:port for the first known address.
func (s *Service) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(strings.TrimSuffix(host, "."), strconv.Itoa(s.Port))
}

// BrowseConfig configures Browse.
type BrowseConfig struct {
	// Interface restricts browsing to one interface (optional).
	Interface string
}

// Browse reports bridges until ctx is done. Services are aggregated by
// instance name: addresses seen on several interfaces are merged into one
// entry, which is sent once.
func Browse(ctx context.Context, config BrowseConfig) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := interfaces(config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	go func() {
		defer close(out)

		services := make(map[string]*Service)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if svc == nil {
					continue
				}
				if existing, found := services[svc.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.Instance] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Find returns the first bridge that answers before ctx is done.
func Find(ctx context.Context, config BrowseConfig) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found, err := Browse(ctx, config)
	if err != nil {
		return nil, err
	}
	svc, ok := <-found
	if !ok {
		return nil, ErrNotFound
	}
	return svc, nil
}

// entryToService converts a zeroconf entry. Entries without a supported
// protocol version are ignored.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	txt := ParseTXTRecords(entry.Text)
	if txt[TXTKeyVersion] != ProtocolVersion {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Service{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      entry.Port,
		Addresses: addrs,
		Name:      txt[TXTKeyName],
		Version:   txt[TXTKeyVersion],
	}
}

// interfaces returns the named interface, or nil for all interfaces.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// mergeAddresses adds new addresses to existing, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses of entry from addresses.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	drop := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		drop[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		drop[ip.String()] = true
	}

	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !drop[addr] {
			out = append(out, addr)
		}
	}
	return out
}

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// Strings renders the records as sorted "key=value" strings.
func (t TXTRecordMap) Strings() []string {
	out := make([]string, 0, len(t))
	for k, v := range t {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}

// ParseTXTRecords parses "key=value" strings. A bare key maps to "".
func ParseTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}
