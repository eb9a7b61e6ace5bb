package registry

import (
	"fmt"
	"strings"

	"github.com/auto-dns/docker-vhoster/internal/util"
)

func keyBaseForFQDN(prefix, fqdn string) string {
	prefix = strings.TrimRight(prefix, "/")
	trimmed := strings.TrimSuffix(strings.TrimSpace(fqdn), ".")
	parts := util.Reverse(strings.Split(trimmed, "."))
	return fmt.Sprintf("%s/%s", prefix, strings.Join(parts, "/"))
}

// From a full etcd key to FQDN (handles trailing xNN segment)
func fqdnFromKey(prefix, key string) string {
	prefix = strings.TrimRight(prefix, "/")
	path := strings.TrimPrefix(key, prefix)
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	if n := len(parts); n > 0 && isIndexSegment(parts[n-1]) {
		parts = parts[:n-1]
	}
	return strings.Join(util.Reverse(parts), ".")
}

// indexFromKey returns n for keys ending in "/x<n>".
func indexFromKey(key string) (int, bool) {
	idx := strings.LastIndex(key, "/")
	if idx < 0 || !isIndexSegment(key[idx+1:]) {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(key[idx+2:], "%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

func isIndexSegment(s string) bool {
	if len(s) < 2 || s[0] != 'x' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
