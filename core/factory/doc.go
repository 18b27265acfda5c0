// Package factory builds pluggable modules from configuration. A module is
// named by its type and carries a free-form conf map that the registered
// factory decodes into its own settings struct:
//
//	free_steam:
//	  source:
//	    type: csv
//	    conf:
//	      path: data/sulfur.csv
//
// Metrics sinks, result publishers, free-steam sources and caches each keep
// their own Registry.
package factory
