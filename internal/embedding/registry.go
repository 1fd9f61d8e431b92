package embedding

import "fmt"

// Factory constructs a Provider from a provider-specific config map, in the
// spirit of internal/slogutil.LoggerFactory (one constructor
// per named kind, selected at config-load time).
type Factory func(config map[string]interface{}) (Provider, error)

var registry = map[string]Factory{}

// Register adds a named Provider factory. Called from provider
// implementations' init() functions so that internal/config's provider
// name string can select one without this package importing them back.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New constructs the Provider registered under name.
func New(name string, config map[string]interface{}) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("embedding: unknown provider %q", name)
	}
	return factory(config)
}

func init() {
	Register("deterministic", func(config map[string]interface{}) (Provider, error) {
		dim := 896
		if d, ok := config["dimension"].(int); ok && d > 0 {
			dim = d
		}
		batch := 32
		if b, ok := config["batch_size"].(int); ok && b > 0 {
			batch = b
		}
		return NewDeterministicProvider(dim, batch), nil
	})
}
