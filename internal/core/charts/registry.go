package charts

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// TypeDefinition describes a chart type to clients and to validation
type TypeDefinition struct {
	Type                ChartType `json:"type"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Payload             string    `json:"payload"` // kpi, series or composite
	SupportsAspectRatio bool      `json:"supportsAspectRatio"`
	DefaultAspectRatio  string    `json:"defaultAspectRatio,omitempty"`
	Order               int       `json:"order"`
}

// Registry holds the known chart type definitions
type Registry struct {
	types  map[ChartType]TypeDefinition
	mutex  sync.RWMutex
	logger *logrus.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		types:  make(map[ChartType]TypeDefinition),
		logger: logger,
	}
}

// NewDefaultRegistry creates a registry with the built-in chart types
func NewDefaultRegistry(logger *logrus.Logger) *Registry {
	r := NewRegistry(logger)
	for _, def := range builtinTypes() {
		if err := r.Register(def); err != nil {
			logger.WithError(err).Error("Failed to register built-in chart type")
		}
	}
	return r
}

func builtinTypes() []TypeDefinition {
	return []TypeDefinition{
		{Type: TypeKPI, Name: "KPI", Description: "Single headline number", Payload: "kpi", Order: 1},
		{Type: TypePie, Name: "Pie", Description: "Share of a whole", Payload: "series", Order: 2},
		{Type: TypeBar, Name: "Bar", Description: "Compared quantities", Payload: "series", SupportsAspectRatio: true, Order: 3},
		{Type: TypeText, Name: "Text", Description: "Markdown text", Payload: "kpi", SupportsAspectRatio: true, Order: 4},
		{Type: TypeImage, Name: "Image", Description: "Image by URL", Payload: "kpi", SupportsAspectRatio: true, DefaultAspectRatio: AspectLandscape, Order: 5},
		{Type: TypeTable, Name: "Table", Description: "Markdown table", Payload: "kpi", SupportsAspectRatio: true, Order: 6},
		{Type: TypeValue, Name: "Value", Description: "KPI with a bar breakdown", Payload: "composite", Order: 7},
	}
}

// Register adds or replaces a chart type definition
func (r *Registry) Register(def TypeDefinition) error {
	if def.Type == "" {
		return fmt.Errorf("chart type cannot be empty")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.types[def.Type] = def

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"chart_type": def.Type,
			"chart_name": def.Name,
		}).Debug("Chart type registered")
	}
	return nil
}

// Get returns the definition for a type
func (r *Registry) Get(t ChartType) (TypeDefinition, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	def, ok := r.types[t]
	return def, ok
}

// List returns all definitions in display order
func (r *Registry) List() []TypeDefinition {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	defs := make([]TypeDefinition, 0, len(r.types))
	for _, def := range r.types {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Order != defs[j].Order {
			return defs[i].Order < defs[j].Order
		}
		return defs[i].Type < defs[j].Type
	})
	return defs
}
