// Package plugins links the built-in module implementations. Each infra
// package registers its factories on import.
package plugins

import (
	"github.com/kilianp07/cogen/core/dispatch"
	"github.com/kilianp07/cogen/core/freesteam"
	coremetrics "github.com/kilianp07/cogen/core/metrics"

	_ "github.com/kilianp07/cogen/infra/freesteam"
	_ "github.com/kilianp07/cogen/infra/kafka"
	_ "github.com/kilianp07/cogen/infra/metrics"
	_ "github.com/kilianp07/cogen/infra/mqtt"
	_ "github.com/kilianp07/cogen/infra/telemetry"
)

// Kind names a family of pluggable modules.
type Kind string

const (
	KindMetrics   Kind = "metrics"
	KindPublisher Kind = "publishers"
	KindSource    Kind = "free_steam.source"
	KindCache     Kind = "free_steam.cache"
	KindJournal   Kind = "journal"
)

// Available lists the module types that can be named in the configuration.
func Available() map[Kind][]string {
	return map[Kind][]string{
		KindMetrics:   coremetrics.SinkTypes(),
		KindPublisher: dispatch.PublisherTypes(),
		KindSource:    append([]string{"none"}, freesteam.SourceTypes()...),
		KindCache:     freesteam.CacheTypes(),
		KindJournal:   {"none", "jsonl", "sqlite"},
	}
}
