package resolve

import (
	"net"
	"strings"

	"rbkoracle/internal/errs"
)

// MatchHostname compares the short names of two hosts. Domain suffixes
// are stripped from both sides first, so "db01" matches "db01.example.com"
// and "db01.a.com" matches "db01.b.com". Case is ignored.
func MatchHostname(a, b string) bool {
	left := strings.ToLower(ShortName(a))
	right := strings.ToLower(ShortName(b))
	if left == "" || right == "" {
		return false
	}
	return left == right
}

// ShortName strips the domain suffix.
func ShortName(host string) string {
	return strings.SplitN(strings.TrimSpace(host), ".", 2)[0]
}

// IsIP reports whether s is an IPv4 or IPv6 address.
func IsIP(s string) bool {
	return net.ParseIP(strings.TrimSpace(s)) != nil
}

// RequireHostname rejects IP addresses, which cannot be label-matched.
func RequireHostname(name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.Validation("a host or cluster name is required")
	}
	if IsIP(name) {
		return errs.Validation("%s is an IP address: use the host name as registered on the appliance", name)
	}
	return nil
}

// SplitHostDB splits a "<host or RAC cluster>:<database>" argument.
func SplitHostDB(arg string) (host, db string, err error) {
	parts := strings.Split(strings.TrimSpace(arg), ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", errs.Validation("%q must be <host or RAC cluster>:<database>", arg)
	}
	host = strings.TrimSpace(parts[0])
	db = strings.TrimSpace(parts[1])
	if err := RequireHostname(host); err != nil {
		return "", "", err
	}
	return host, db, nil
}

// bareID drops a "Type:::" prefix from an object id.
func bareID(id string) string {
	if i := strings.LastIndex(id, ":::"); i >= 0 {
		return id[i+3:]
	}
	return id
}
