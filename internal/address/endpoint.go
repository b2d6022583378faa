// Package address holds the pure value types the rest of partikv routes
// by: network endpoints, partition ids, and the routing-key derivation
// used to pick a partition for a (hashKey, sortKey) pair.
package address

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// Endpoint is a typed (IPv4, port) pair stored in host byte order so that
// comparisons and hashing never need to special-case network byte order.
// The zero value is Invalid() and never compares equal to a real endpoint.
type Endpoint struct {
	IPv4 uint32
	Port uint16
}

// Invalid returns the sentinel endpoint used to mark an unresolved or
// stale partition primary.
func Invalid() Endpoint {
	return Endpoint{}
}

// IsValid reports whether e is not the zero/sentinel value.
func (e Endpoint) IsValid() bool {
	return e.IPv4 != 0 || e.Port != 0
}

// Parse resolves host synchronously once and stores the IP numerically.
// host may already be a dotted-quad literal, in which case no DNS lookup
// happens.
func Parse(host string, port uint16) (Endpoint, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("address: resolve %s: %w", host, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return Endpoint{IPv4: binary.BigEndian.Uint32(v4), Port: port}, nil
		}
	}
	return Endpoint{}, fmt.Errorf("address: %s has no IPv4 address", host)
}

// ParseHostPort parses a "host:port" string via Parse.
func ParseHostPort(hostport string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Endpoint{}, fmt.Errorf("address: %s: %w", hostport, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("address: bad port in %s: %w", hostport, err)
	}
	return Parse(host, uint16(port))
}

// String renders the canonical "a.b.c.d:port" form.
func (e Endpoint) String() string {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, e.IPv4)
	return fmt.Sprintf("%d.%d.%d.%d:%d", b[0], b[1], b[2], b[3], e.Port)
}

// DialAddr returns the address suitable for net.Dial("tcp", ...).
func (e Endpoint) DialAddr() string {
	return e.String()
}

// Gpid is a global partition id: the pair that uniquely identifies one
// partition of one table across the whole cluster.
type Gpid struct {
	AppID          int32
	PartitionIndex int32
}

func (g Gpid) String() string {
	return fmt.Sprintf("%d.%d", g.AppID, g.PartitionIndex)
}
