// Package privacy masks personally identifiable values before they reach logs.
package privacy

import (
	"fmt"
	"net/netip"
	"strings"
)

// AnonymizeIP truncates an address to its network prefix: /24 for IPv4,
// /48 for IPv6. Returns "unknown" for empty input and "invalid" when the
// value does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	if addr.Is4() {
		prefix, _ := addr.Prefix(24)
		return prefix.Addr().String()
	}

	b := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::", b[0], b[1], b[2], b[3], b[4], b[5])
}

// MaskEmail keeps the first character of the local part and the full domain,
// e.g. "ada@example.com" -> "a***@example.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
