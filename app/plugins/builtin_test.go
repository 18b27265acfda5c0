package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailable(t *testing.T) {
	got := Available()
	assert.Subset(t, got[KindMetrics], []string{"influx", "memory", "nop", "prometheus", "savings"})
	assert.Subset(t, got[KindPublisher], []string{"kafka", "mqtt"})
	assert.Subset(t, got[KindSource], []string{"none", "csv", "influx", "mqtt"})
	assert.Subset(t, got[KindCache], []string{"memory", "redis"})
	assert.Equal(t, []string{"none", "jsonl", "sqlite"}, got[KindJournal])
}
