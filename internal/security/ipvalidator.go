package security

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
)

// IPAllowlist restricts which client addresses may submit initData. An
// empty allowlist admits every address.
type IPAllowlist struct {
	mu    sync.RWMutex
	cidrs []*net.IPNet
}

// NewIPAllowlist parses cidrs into an allowlist
func NewIPAllowlist(cidrs []string) (*IPAllowlist, error) {
	a := &IPAllowlist{}
	if err := a.SetCIDRs(cidrs); err != nil {
		return nil, err
	}
	return a, nil
}

// SetCIDRs replaces the allowed ranges
func (a *IPAllowlist) SetCIDRs(cidrs []string) error {
	parsed := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("parsing CIDR %q: %w", cidr, err)
		}
		parsed = append(parsed, ipNet)
	}

	a.mu.Lock()
	a.cidrs = parsed
	a.mu.Unlock()

	return nil
}

// Allows checks if the given IP is inside one of the allowed ranges
func (a *IPAllowlist) Allows(ipStr string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.cidrs) == 0 {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range a.cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP extracts the host part of an http.Request RemoteAddr. Addresses
// without a port are returned as-is.
func ClientIP(remoteAddr string) string {
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
