package vtysh

import (
	"strings"
	"testing"
)

const showInterfaceOutput = `eth1 is up
  ifindex 3, MTU 1500 bytes, BW 10000 Mbit <UP,BROADCAST,RUNNING,MULTICAST>
  Internet Address 10.0.10.3/24, Broadcast 10.0.10.255, Area 0.0.0.0
  MTU mismatch detection: enabled
  Router ID 192.168.1.1, Network Type BROADCAST, Cost: 10
  Transmit Delay is 1 sec, State DR, Priority 1
`

const showRouteOSPF = `Routing entry for 10.0.15.0/24
  Known via "ospf", distance 110, metric 30, best
  Last update 00:00:12 ago
  * 10.0.13.3, via eth2, weight 1
`

const showRouteConnected = `Routing entry for 10.0.15.0/24
  Known via "connected", distance 0, metric 0, best
  Last update 00:11:58 ago
  * directly connected, eth2
`

const showRouteMissing = `% Network not in table
`

func TestParseInterfaceCost(t *testing.T) {
	cost, err := ParseInterfaceCost(showInterfaceOutput)
	if err != nil {
		t.Fatalf("ParseInterfaceCost: %v", err)
	}
	if cost != 10 {
		t.Errorf("cost = %d, want 10", cost)
	}

	if _, err := ParseInterfaceCost("eth1 is down"); err == nil {
		t.Error("ParseInterfaceCost on costless output succeeded, want error")
	}
}

func TestParseNextHop(t *testing.T) {
	nh, err := ParseNextHop(showRouteOSPF)
	if err != nil {
		t.Fatalf("ParseNextHop: %v", err)
	}
	if nh.Via != "10.0.13.3" || nh.Interface != "eth2" || nh.Connected {
		t.Errorf("next hop = %+v, want via 10.0.13.3 on eth2", nh)
	}
}

func TestParseNextHopConnected(t *testing.T) {
	nh, err := ParseNextHop(showRouteConnected)
	if err != nil {
		t.Fatalf("ParseNextHop: %v", err)
	}
	if !nh.Connected || nh.Interface != "eth2" || nh.Via != "" {
		t.Errorf("next hop = %+v, want directly connected on eth2", nh)
	}
}

func TestParseNextHopMissingRoute(t *testing.T) {
	if _, err := ParseNextHop(showRouteMissing); err == nil {
		t.Error("ParseNextHop on missing route succeeded, want error")
	}
}

func TestParseTracerouteHops(t *testing.T) {
	output := `traceroute to 10.0.15.3 (10.0.15.3), 30 hops max, 60 byte packets
 1  10.0.14.4  0.042 ms  0.011 ms  0.010 ms
 2  10.0.13.3  0.035 ms  0.021 ms  0.019 ms
 3  10.0.12.3  0.051 ms  0.028 ms  0.026 ms
 4  10.0.15.3  0.063 ms  0.042 ms  0.038 ms
`
	hops := ParseTracerouteHops(output)
	want := []string{"10.0.14.4", "10.0.13.3", "10.0.12.3", "10.0.15.3"}
	if len(hops) != len(want) {
		t.Fatalf("hops = %v, want %v", hops, want)
	}
	for i := range want {
		if hops[i] != want[i] {
			t.Errorf("hop[%d] = %q, want %q", i, hops[i], want[i])
		}
	}
}

func TestParsePingStats(t *testing.T) {
	output := `PING 10.0.15.3 (10.0.15.3) 56(84) bytes of data.
64 bytes from 10.0.15.3: icmp_seq=1 ttl=61 time=0.065 ms
64 bytes from 10.0.15.3: icmp_seq=2 ttl=61 time=0.060 ms

--- 10.0.15.3 ping statistics ---
4 packets transmitted, 4 received, 0% packet loss, time 3064ms
`
	stats, err := ParsePingStats(output)
	if err != nil {
		t.Fatalf("ParsePingStats: %v", err)
	}
	if stats.Transmitted != 4 || stats.Received != 4 {
		t.Errorf("stats = %+v, want 4/4", stats)
	}
	if stats.Loss() != 0 {
		t.Errorf("Loss() = %v, want 0", stats.Loss())
	}
}

func TestSetInterfaceCost(t *testing.T) {
	cmd := SetInterfaceCost("eth1", 100)
	for _, fragment := range []string{"configure terminal", "interface eth1", "ip ospf cost 100", "write memory"} {
		if !strings.Contains(cmd, fragment) {
			t.Errorf("SetInterfaceCost missing %q in %q", fragment, cmd)
		}
	}
}

func TestConfigureOSPF(t *testing.T) {
	cmd := ConfigureOSPF("192.168.1.1", []string{"10.0.14.0/24", "10.0.10.0/24"})
	for _, fragment := range []string{
		"router ospf",
		"ospf router-id 192.168.1.1",
		"network 10.0.14.0/24 area 0.0.0.0",
		"network 10.0.10.0/24 area 0.0.0.0",
	} {
		if !strings.Contains(cmd, fragment) {
			t.Errorf("ConfigureOSPF missing %q", fragment)
		}
	}
}
