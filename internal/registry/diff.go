package registry

import (
	"github.com/auto-dns/docker-vhoster/internal/domain"
)

// diffRecords compares what is stored against what should be published.
// Duplicate desired records are registered once.
func diffRecords(existing []StoredRecord, desired []domain.HostRecord) (toAdd []domain.HostRecord, toRemove []StoredRecord) {
	wanted := make(map[string]struct{}, len(desired))
	for _, hr := range desired {
		wanted[hr.Key()] = struct{}{}
	}

	present := make(map[string]struct{}, len(existing))
	for _, sr := range existing {
		k := sr.Record.Key()
		_, keep := wanted[k]
		_, dup := present[k]
		if !keep || dup {
			toRemove = append(toRemove, sr)
			continue
		}
		present[k] = struct{}{}
	}

	for _, hr := range desired {
		k := hr.Key()
		if _, ok := present[k]; ok {
			continue
		}
		present[k] = struct{}{}
		toAdd = append(toAdd, hr)
	}
	return toAdd, toRemove
}
