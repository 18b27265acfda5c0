package logging

import "fmt"

// Options selects and configures a journal store.
type Options struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend    string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open returns the store described by o. A jsonl backend with a positive
// MaxSizeMB rotates. The "none" backend returns a nil store.
func Open(o Options) (LogStore, error) {
	switch o.Backend {
	case "none", "":
		return nil, nil
	case "jsonl":
		if o.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(o.Path, o.MaxSizeMB, o.MaxBackups, o.MaxAgeDays)
		}
		return NewJSONLStore(o.Path)
	case "sqlite":
		return NewSQLiteStore(o.Path)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", o.Backend)
	}
}
