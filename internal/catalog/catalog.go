// Package catalog holds the static visa-route and evidence-schema
// definitions. They are read-only inputs: the engine instantiates modules
// from them and the binding registry validates section identifiers against
// them, but nothing in this core mutates a catalog record.
package catalog

import (
	"context"
	"fmt"
	"sync"

	id "docket/pkg/domain"
	"docket/pkg/platform/sentinel"
)

// FieldDef is one schema-defined datum an evidence document must yield.
type FieldDef struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Editable bool   `json:"editable"`
}

// RequirementDef is one evidence requirement template within a section.
// Count > 1 instantiates numbered modules ("Payslip #1", "Payslip #2").
type RequirementDef struct {
	Title        string          `json:"title"`
	DocumentType id.DocumentType `json:"document_type"`
	Count        int             `json:"count"`
	Fields       []FieldDef      `json:"fields"`
}

// SectionDef is one checklist section of a route.
type SectionDef struct {
	ID           id.SectionID     `json:"id"`
	Title        string           `json:"title"`
	Requirements []RequirementDef `json:"requirements"`
}

// Route is one visa route's full evidence checklist.
type Route struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Sections []SectionDef `json:"sections"`
}

// HasSection reports whether the route's checklist contains the section.
func (r Route) HasSection(section id.SectionID) bool {
	for _, s := range r.Sections {
		if s.ID == section {
			return true
		}
	}
	return false
}

// Catalog is the in-memory route table, seeded once at startup.
type Catalog struct {
	mu     sync.RWMutex
	routes map[string]Route
	order  []string
}

func New() *Catalog {
	return &Catalog{routes: make(map[string]Route)}
}

// Register adds a route definition. Seeding only; not part of the runtime
// mutation surface.
func (c *Catalog) Register(route Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.routes[route.ID]; !exists {
		c.order = append(c.order, route.ID)
	}
	c.routes[route.ID] = route
}

// Route resolves a route by id.
func (c *Catalog) Route(_ context.Context, routeID string) (Route, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	route, ok := c.routes[routeID]
	if !ok {
		return Route{}, fmt.Errorf("route %q: %w", routeID, sentinel.ErrNotFound)
	}
	return route, nil
}

// Routes lists every registered route in seed order.
func (c *Catalog) Routes(_ context.Context) []Route {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Route, 0, len(c.order))
	for _, routeID := range c.order {
		out = append(out, c.routes[routeID])
	}
	return out
}
