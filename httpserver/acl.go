package httpserver

import (
	"net/netip"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const aclCacheSize = 1024

// allowList answers whether a peer may use the RPC interface. The subnet
// list is fixed after construction, so per-peer verdicts are cacheable.
type allowList struct {
	subnets []netip.Prefix
	cache   *lru.Cache
}

// newAllowList parses the configured entries and prepends the loopback
// subnets, which are always allowed.
func newAllowList(allow []string) (*allowList, error) {
	subnets := []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}
	for _, s := range allow {
		subnet, err := parseSubnet(s)
		if err != nil {
			return nil, errors.Errorf("Invalid -rpcallowip subnet specification: %s. "+
				"Valid are a single IP (e.g. 1.2.3.4), a network/netmask "+
				"(e.g. 1.2.3.4/255.255.255.0) or a network/CIDR (e.g. 1.2.3.4/24).", s)
		}
		subnets = append(subnets, subnet)
	}
	cache, err := lru.New(aclCacheSize)
	if err != nil {
		return nil, err
	}
	return &allowList{subnets: subnets, cache: cache}, nil
}

// parseSubnet accepts a single address, network/CIDR, or network/netmask.
func parseSubnet(s string) (netip.Prefix, error) {
	host, mask, hasMask := strings.Cut(s, "/")
	if !hasMask {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	if strings.Contains(mask, ".") {
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return netip.Prefix{}, err
		}
		addr = addr.Unmap()
		m, err := netip.ParseAddr(mask)
		if err != nil || !addr.Is4() || !m.Is4() {
			return netip.Prefix{}, errors.Errorf("bad netmask %s", mask)
		}
		bits, ok := maskBits(m.As4())
		if !ok {
			return netip.Prefix{}, errors.Errorf("non-contiguous netmask %s", mask)
		}
		return netip.PrefixFrom(addr, bits).Masked(), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return p.Masked(), nil
}

// maskBits converts a dotted netmask to a prefix length, rejecting
// non-contiguous masks.
func maskBits(mask [4]byte) (int, bool) {
	bits := 0
	seenZero := false
	for _, b := range mask {
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) != 0 {
				if seenZero {
					return 0, false
				}
				bits++
			} else {
				seenZero = true
			}
		}
	}
	return bits, true
}

// Allowed reports whether addr matches any subnet. Invalid addresses are
// rejected.
func (l *allowList) Allowed(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	key := addr.String()
	if v, ok := l.cache.Get(key); ok {
		return v.(bool)
	}
	allowed := false
	for _, subnet := range l.subnets {
		if subnet.Contains(addr) {
			allowed = true
			break
		}
	}
	l.cache.Add(key, allowed)
	return allowed
}

func (l *allowList) String() string {
	parts := make([]string, 0, len(l.subnets))
	for _, subnet := range l.subnets {
		parts = append(parts, subnet.String())
	}
	return strings.Join(parts, " ")
}
