package discovery

import (
	"context"
	"net"
	"strings"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browse behavior.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface. Empty
	// means all interfaces.
	Interface string
}

// Browser finds NodeLink nodes via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a new mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse streams discovered nodes until the context is cancelled.
// Announcements are aggregated by instance name so a node visible on
// multiple interfaces is emitted once, with its addresses merged. The
// returned channel is closed when browsing ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *NodeService, error) {
	out := make(chan *NodeService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go aggregateEntries(ctx, entries, removed, out)
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// aggregateEntries merges announcements per instance name and forwards
// each new service once, until entries closes or the context ends.
func aggregateEntries(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *NodeService) {
	defer close(out)

	services := make(map[string]*NodeService)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc := entryToNode(entry)
			if svc == nil {
				continue
			}

			existing, found := services[svc.InstanceName]
			if found {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				continue
			}
			services[svc.InstanceName] = svc
			select {
			case out <- svc:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				// A closed channel is always ready; stop selecting on
				// it so entries keep draining.
				removed = nil
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
}

// FindByName searches for a node whose advertised name or instance
// name matches. Returns when found or when the context ends.
func (b *Browser) FindByName(ctx context.Context, name string) (*NodeService, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if svc.Name == name || svc.InstanceName == name {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// ServiceEntry is the interface-neutral form of one mDNS announcement.
// Browser implementations convert their library's entry type into this
// before decoding.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToNodeService decodes the entry's TXT records into a NodeService.
func (e *ServiceEntry) ToNodeService() (*NodeService, error) {
	info, err := DecodeNodeTXT(StringsToTXTRecords(e.Text))
	if err != nil {
		return nil, err
	}

	name := info.Name
	if name == "" {
		name = strings.TrimSuffix(e.Instance, "."+ServiceType)
	}

	return &NodeService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		Name:         name,
		MACAddress:   info.MACAddress,
		Version:      info.Version,
	}, nil
}

// entryToNode converts a zeroconf entry, dropping announcements with
// unusable TXT records.
func entryToNode(entry *zeroconf.ServiceEntry) *NodeService {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	e := &ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
	svc, err := e.ToNodeService()
	if err != nil {
		return nil
	}
	return svc
}

// mergeAddresses adds new addresses, avoiding duplicates.
func mergeAddresses(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range more {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses announced by a vanished entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
