package vtysh

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	costRe      = regexp.MustCompile(`Cost:\s*(\d+)`)
	nextHopRe   = regexp.MustCompile(`(?m)^\s*\*?\s*(\d+\.\d+\.\d+\.\d+), via (\S+?)(?:,|$)`)
	connectedRe = regexp.MustCompile(`(?m)^\s*\*?\s*directly connected, (\S+)`)
	hopRe       = regexp.MustCompile(`(?m)^\s*\d+\s+(\d+\.\d+\.\d+\.\d+)`)
	pingStatsRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
)

// NextHop is the forwarding observation extracted from `show ip route`.
// Either Via is set (recursive/adjacent next hop) or Connected is true and
// the prefix is local to Interface.
type NextHop struct {
	Via       string
	Interface string
	Connected bool
}

// ParseInterfaceCost extracts the configured OSPF cost from
// `show ip ospf interface <if>` output.
func ParseInterfaceCost(output string) (int, error) {
	m := costRe.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("no OSPF cost in output")
	}
	cost, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parsing cost %q: %w", m[1], err)
	}
	return cost, nil
}

// ParseNextHop extracts the selected next hop toward a prefix from
// `show ip route <prefix>` output. Returns an error when the router has no
// route at all (the caller treats that as "not yet converged").
func ParseNextHop(output string) (*NextHop, error) {
	if m := connectedRe.FindStringSubmatch(output); m != nil {
		return &NextHop{Connected: true, Interface: m[1]}, nil
	}
	if m := nextHopRe.FindStringSubmatch(output); m != nil {
		return &NextHop{Via: m[1], Interface: strings.TrimSuffix(m[2], ",")}, nil
	}
	return nil, fmt.Errorf("no route in output")
}

// ParseTracerouteHops extracts the responding hop addresses from numeric
// traceroute output, in order. Unresponsive hops ("* * *") are skipped.
func ParseTracerouteHops(output string) []string {
	var hops []string
	for _, m := range hopRe.FindAllStringSubmatch(output, -1) {
		hops = append(hops, m[1])
	}
	return hops
}

// PingStats summarizes a bounded ping probe.
type PingStats struct {
	Transmitted int
	Received    int
}

// Loss returns the fraction of probes lost, in [0, 1].
func (s PingStats) Loss() float64 {
	if s.Transmitted == 0 {
		return 0
	}
	return float64(s.Transmitted-s.Received) / float64(s.Transmitted)
}

// ParsePingStats extracts transmit/receive counts from ping output.
func ParsePingStats(output string) (PingStats, error) {
	m := pingStatsRe.FindStringSubmatch(output)
	if m == nil {
		return PingStats{}, fmt.Errorf("no ping statistics in output")
	}
	tx, _ := strconv.Atoi(m[1])
	rx, _ := strconv.Atoi(m[2])
	return PingStats{Transmitted: tx, Received: rx}, nil
}
