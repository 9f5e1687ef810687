// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/duopath-network/duopath/pkg/topology"
)

// DualPathYAML is the canonical four-router/two-host descriptor used across
// package tests: path A runs r1-r2-r3, path B runs r1-r4-r3.
const DualPathYAML = `
name: dualpath-lab
traffic:
  source: hosta
  destination: hostb
defaults:
  preferred_path: A
  low_cost: 10
  high_cost: 100
nodes:
  - {id: hosta, role: host, mgmt: hosta, gateway: 10.0.14.4}
  - {id: hostb, role: host, mgmt: hostb, gateway: 10.0.15.4}
  - {id: r1, role: router, mgmt: r1, router_id: 192.168.1.1}
  - {id: r2, role: router, mgmt: r2, router_id: 192.168.1.2}
  - {id: r3, role: router, mgmt: r3, router_id: 192.168.1.3}
  - {id: r4, role: router, mgmt: r4, router_id: 192.168.1.4}
links:
  - a: {node: hosta, interface: eth0, address: 10.0.14.3}
    b: {node: r1, interface: eth0, address: 10.0.14.4}
    subnet: 10.0.14.0/24
    cost: 10
  - a: {node: hostb, interface: eth0, address: 10.0.15.3}
    b: {node: r3, interface: eth2, address: 10.0.15.4}
    subnet: 10.0.15.0/24
    cost: 10
  - a: {node: r1, interface: eth1, address: 10.0.10.3}
    b: {node: r2, interface: eth0, address: 10.0.10.4}
    subnet: 10.0.10.0/24
    path: A
    cost: 10
  - a: {node: r2, interface: eth1, address: 10.0.11.3}
    b: {node: r3, interface: eth0, address: 10.0.11.4}
    subnet: 10.0.11.0/24
    path: A
    cost: 10
  - a: {node: r1, interface: eth2, address: 10.0.13.4}
    b: {node: r4, interface: eth0, address: 10.0.13.3}
    subnet: 10.0.13.0/24
    path: B
    cost: 100
  - a: {node: r3, interface: eth1, address: 10.0.12.3}
    b: {node: r4, interface: eth1, address: 10.0.12.4}
    subnet: 10.0.12.0/24
    path: B
    cost: 100
`

// DualPathTopology parses DualPathYAML, failing the test on error.
func DualPathTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.Parse([]byte(DualPathYAML))
	if err != nil {
		t.Fatalf("parsing fixture topology: %v", err)
	}
	return topo
}
