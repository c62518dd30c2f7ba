package commerce

import (
	"net/http"

	integrationapp "github.com/truthsource/backend/internal/application/integration"
	"github.com/truthsource/backend/internal/domain/integration"
)

// Registry resolves the connector for a platform. It implements
// integrationapp.ConnectorRegistry.
type Registry struct {
	connectors map[integration.Platform]integrationapp.Connector
}

// NewRegistry creates a registry over the given connectors
func NewRegistry(connectors ...integrationapp.Connector) *Registry {
	m := make(map[integration.Platform]integrationapp.Connector, len(connectors))
	for _, c := range connectors {
		m[c.Platform()] = c
	}
	return &Registry{connectors: m}
}

// NewDefaultRegistry creates a registry with all supported platforms sharing
// one HTTP client
func NewDefaultRegistry(hc *http.Client) *Registry {
	return NewRegistry(
		NewShopifyConnector(hc),
		NewWooCommerceConnector(hc),
		NewNetSuiteConnector(hc),
	)
}

// Connector returns the connector for a platform
func (r *Registry) Connector(platform integration.Platform) (integrationapp.Connector, bool) {
	c, ok := r.connectors[platform]
	return c, ok
}
