// Package marketplace holds the analytics plugins and the data integrations a
// user can enable for an analysis.
//
// A Catalog is plain per-session state: it is created by NewCatalog, passed
// explicitly to whoever needs it, and never persisted.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Category of a plugin.
type Category string

const (
	CategoryModel     Category = "MODEL"
	CategoryRisk      Category = "RISK"
	CategoryAnalytics Category = "ANALYTICS"
)

// Status of an integration.
type Status string

const (
	Connected    Status = "CONNECTED"
	Disconnected Status = "DISCONNECTED"
)

// Identifiers of the plugins with a dedicated analysis clause.
const (
	ValuationDCF = "valuation_dcf"
	SaaSMetrics  = "saas_metrics"
	FraudCheck   = "fraud_check"
)

// ErrNotFound is returned for a plugin or integration that is not in the catalog.
var ErrNotFound = errors.New("not in catalog")

// Plugin is an optional analysis performed by the model.
type Plugin struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Active      bool     `json:"active"`
}

// Integration is an external data platform whose context is injected into analyses.
type Integration struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Context     string `json:"context,omitempty"`
}

func defaultPlugins() []Plugin {
	return []Plugin{
		{ID: ValuationDCF, Name: "DCF Valuation Model", Description: "Calculates intrinsic value using Discounted Cash Flow analysis.", Category: CategoryModel},
		{ID: SaaSMetrics, Name: "SaaS Metrics Engine", Description: "Automatically extracts LTV, CAC, Churn, and MRR/ARR movements.", Category: CategoryAnalytics},
		{ID: FraudCheck, Name: "Fraud Detection", Description: "Scans for Benfords Law anomalies and irregular transaction patterns.", Category: CategoryRisk},
	}
}

func defaultIntegrations() []Integration {
	return []Integration{
		{ID: "stripe", Name: "Stripe", Description: "Live revenue and transaction data sync.", Status: Disconnected},
		{ID: "xero", Name: "Xero", Description: "Accounting ledger and bank reconciliation.", Status: Disconnected},
		{ID: "salesforce", Name: "Salesforce", Description: "CRM pipeline and deal forecasting.", Status: Disconnected},
	}
}

// Catalog is the toggle state of plugins and integrations of one session.
// It is safe for concurrent use.
type Catalog struct {
	mu           sync.Mutex
	plugins      []Plugin
	integrations []Integration
}

// NewCatalog returns a fresh catalog: every plugin inactive, every integration disconnected.
func NewCatalog() *Catalog {
	return &Catalog{plugins: defaultPlugins(), integrations: defaultIntegrations()}
}

// Plugins returns a copy of every plugin.
func (c *Catalog) Plugins() []Plugin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Plugin(nil), c.plugins...)
}

// Integrations returns a copy of every integration.
func (c *Catalog) Integrations() []Integration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Integration(nil), c.integrations...)
}

// ActivePlugins returns the active plugins in catalog order.
func (c *Catalog) ActivePlugins() []Plugin {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res []Plugin
	for _, p := range c.plugins {
		if p.Active {
			res = append(res, p)
		}
	}
	return res
}

// Connected returns the connected integrations in catalog order.
func (c *Catalog) Connected() []Integration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res []Integration
	for _, i := range c.integrations {
		if i.Status == Connected {
			res = append(res, i)
		}
	}
	return res
}

// SetPlugin activates or deactivates a plugin.
func (c *Catalog) SetPlugin(id string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.plugins {
		if c.plugins[i].ID == id {
			c.plugins[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("unknown plugin %q: %w", id, ErrNotFound)
}

// TogglePlugin flips a plugin and returns its new state.
func (c *Catalog) TogglePlugin(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.plugins {
		if c.plugins[i].ID == id {
			c.plugins[i].Active = !c.plugins[i].Active
			return c.plugins[i].Active, nil
		}
	}
	return false, fmt.Errorf("unknown plugin %q: %w", id, ErrNotFound)
}

// AddPlugin installs a plugin that is not part of the default catalog. It has
// no dedicated analysis clause.
func (c *Catalog) AddPlugin(p Plugin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.plugins {
		if q.ID == p.ID {
			return fmt.Errorf("plugin %q already exists", p.ID)
		}
	}
	c.plugins = append(c.plugins, p)
	return nil
}

// Connect performs the connector handshake and marks the integration connected
// with the returned context.
func (c *Catalog) Connect(ctx context.Context, conn Connector, id string) (Integration, error) {
	if _, ok := c.integration(id); !ok {
		return Integration{}, fmt.Errorf("unknown integration %q: %w", id, ErrNotFound)
	}
	// the handshake is slow, do not hold the lock
	data, err := conn.Connect(ctx, id)
	if err != nil {
		return Integration{}, fmt.Errorf("cannot connect %q: %w", id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.integrations {
		if c.integrations[i].ID == id {
			c.integrations[i].Status = Connected
			c.integrations[i].Context = data
			return c.integrations[i], nil
		}
	}
	return Integration{}, fmt.Errorf("unknown integration %q: %w", id, ErrNotFound)
}

// Disconnect marks the integration disconnected and forgets its context.
func (c *Catalog) Disconnect(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.integrations {
		if c.integrations[i].ID == id {
			c.integrations[i].Status = Disconnected
			c.integrations[i].Context = ""
			return nil
		}
	}
	return fmt.Errorf("unknown integration %q: %w", id, ErrNotFound)
}

func (c *Catalog) integration(id string) (Integration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range c.integrations {
		if i.ID == id {
			return i, true
		}
	}
	return Integration{}, false
}
