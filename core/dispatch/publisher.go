package dispatch

import (
	"context"

	"github.com/kilianp07/cogen/core/factory"
	"github.com/kilianp07/cogen/core/model"
)

// Publisher delivers a solved result to an external system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, res model.Result) error
	Close() error
}

var publisherRegistry = factory.NewRegistry[Publisher]()

// RegisterPublisher adds a publisher factory identified by name.
func RegisterPublisher(name string, f factory.Factory[Publisher]) error {
	return publisherRegistry.Register(name, f)
}

// PublisherTypes lists the registered publisher types.
func PublisherTypes() []string { return publisherRegistry.Types() }

// NewPublishers creates one publisher per configuration entry. Publishers
// already created are closed when a later one fails.
func NewPublishers(cfgs []factory.ModuleConfig) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, c := range cfgs {
		p, err := publisherRegistry.Create(c)
		if err != nil {
			for _, done := range pubs {
				_ = done.Close()
			}
			return nil, err
		}
		pubs = append(pubs, p)
	}
	return pubs, nil
}
