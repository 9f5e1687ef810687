package util

import (
	"fmt"
	"net"
)

// AddrInSubnet reports whether addr (a bare IP, no mask) falls inside the
// given subnet in CIDR notation.
func AddrInSubnet(addr, subnet string) (bool, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false, fmt.Errorf("invalid IP address: %s", addr)
	}
	_, ipNet, err := net.ParseCIDR(subnet)
	if err != nil {
		return false, fmt.Errorf("invalid subnet: %s", subnet)
	}
	return ipNet.Contains(ip), nil
}

// SubnetsOverlap reports whether two CIDR subnets share any address.
func SubnetsOverlap(a, b string) (bool, error) {
	_, netA, err := net.ParseCIDR(a)
	if err != nil {
		return false, fmt.Errorf("invalid subnet: %s", a)
	}
	_, netB, err := net.ParseCIDR(b)
	if err != nil {
		return false, fmt.Errorf("invalid subnet: %s", b)
	}
	return netA.Contains(netB.IP) || netB.Contains(netA.IP), nil
}
