package registry

import (
	"testing"

	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDiffRecords(t *testing.T) {
	web := hostRecord("web.local", "c1")
	api := hostRecord("api.local", "c2")
	old := hostRecord("old.local", "c3")

	existing := []StoredRecord{
		{Key: "/skydns/local/web/x1", Record: web},
		{Key: "/skydns/local/web/x2", Record: web},
		{Key: "/skydns/local/old/x1", Record: old},
	}
	toAdd, toRemove := diffRecords(existing, []domain.HostRecord{web, api, api})

	assert.Equal(t, []domain.HostRecord{api}, toAdd)
	assert.Equal(t, []StoredRecord{
		{Key: "/skydns/local/web/x2", Record: web},
		{Key: "/skydns/local/old/x1", Record: old},
	}, toRemove)
}

func TestDiffRecords_Empty(t *testing.T) {
	toAdd, toRemove := diffRecords(nil, nil)
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
}
