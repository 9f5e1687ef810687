package util

import "testing"

func TestAddrInSubnet(t *testing.T) {
	tests := []struct {
		addr    string
		subnet  string
		want    bool
		wantErr bool
	}{
		{"10.0.14.3", "10.0.14.0/24", true, false},
		{"10.0.15.3", "10.0.14.0/24", false, false},
		{"10.0.14.255", "10.0.14.0/24", true, false},
		{"not-an-ip", "10.0.14.0/24", false, true},
		{"10.0.14.3", "bogus", false, true},
	}
	for _, tt := range tests {
		got, err := AddrInSubnet(tt.addr, tt.subnet)
		if (err != nil) != tt.wantErr {
			t.Errorf("AddrInSubnet(%q, %q) error = %v, wantErr %v", tt.addr, tt.subnet, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("AddrInSubnet(%q, %q) = %v, want %v", tt.addr, tt.subnet, got, tt.want)
		}
	}
}

func TestSubnetsOverlap(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"10.0.14.0/24", "10.0.15.0/24", false},
		{"10.0.14.0/24", "10.0.14.0/24", true},
		{"10.0.0.0/16", "10.0.14.0/24", true},
		{"10.0.14.0/24", "10.0.0.0/16", true},
	}
	for _, tt := range tests {
		got, err := SubnetsOverlap(tt.a, tt.b)
		if err != nil {
			t.Fatalf("SubnetsOverlap(%q, %q): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("SubnetsOverlap(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
