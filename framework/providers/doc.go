// Package providers registers the services the application kernel looks up
// by id: settings, logger, router, callableResolver, response and the
// notFound / notAllowed / error handlers.
//
// Each provider skips ids that are already set, so a container seeded with
// custom entries keeps them:
//
//	c := container.New(map[string]any{
//	    handlers.NotFoundID: handlers.NotFound(myNotFound),
//	})
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&providers.SettingsServiceProvider{})
//	registry.Register(&providers.DefaultServicesProvider{})
package providers
