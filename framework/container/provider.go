package container

import "fmt"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register is called as soon as the provider is added and must only Set
// entries. Boot runs after every provider is registered, so it may resolve
// entries contributed by other providers.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(c *container.Container) error {
//	    return c.Set("mailer", container.Definition(func(c *container.Container) (any, error) {
//	        return mail.New(), nil
//	    }))
//	}
type ServiceProvider interface {
	Register(c *Container) error
	Boot(c *Container) error
}

// BaseProvider is an embeddable no-op Boot.
type BaseProvider struct{}

func (BaseProvider) Boot(_ *Container) error { return nil }

// Register runs provider.Register on c and then sets values, which lets the
// caller override parameters the provider just defined.
func (c *Container) Register(provider ServiceProvider, values map[string]any) error {
	if err := provider.Register(c); err != nil {
		return fmt.Errorf("container: register %T: %w", provider, err)
	}
	for id, v := range values {
		if err := c.Set(id, v); err != nil {
			return err
		}
	}
	return nil
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry tracks providers for a container and boots them once.
type ProviderRegistry struct {
	app        *Container
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method.
// Registering the same provider twice is a no-op. A provider added after
// Boot is booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	if err := r.app.Register(provider, nil); err != nil {
		return err
	}
	r.registered[provider] = true
	r.providers = append(r.providers, provider)

	if r.booted {
		return bootProvider(r.app, provider)
	}
	return nil
}

// Boot calls Boot on every registered provider in registration order.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, p := range r.providers {
		if err := bootProvider(r.app, p); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true once Boot has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }

func bootProvider(c *Container, p ServiceProvider) error {
	if err := p.Boot(c); err != nil {
		return fmt.Errorf("container: boot %T: %w", p, err)
	}
	return nil
}
