package layer

import "github.com/ONSdigital/go-ns/log"

// DefaultPaneName is the pane a layer draws into when no other is configured.
const DefaultPaneName = "overlayPane"

// Pane is a named container in the host map's display stack.
type Pane interface {
	Name() string
}

// Map is the host map a Layer attaches to.
type Map interface {
	// GetPane returns the pane with the given name, or false if there is none.
	GetPane(name string) (Pane, bool)
	// CreatePane adds a new pane with the given name.
	CreatePane(name string) Pane
}

// PaneManager finds or creates the pane a layer renders into.
type PaneManager struct {
	name string
	pane Pane
}

// Resolve looks up the named pane on the map, creating it only if it does not exist yet so
// an existing pane keeps its place in the stack.
func (p *PaneManager) Resolve(m Map, name string) Pane {
	if len(name) == 0 {
		name = DefaultPaneName
	}
	pane, ok := m.GetPane(name)
	if !ok {
		log.Debug("creating pane", log.Data{"pane": name})
		pane = m.CreatePane(name)
	}
	p.name, p.pane = name, pane
	return pane
}

// Name returns the name of the resolved pane.
func (p *PaneManager) Name() string {
	return p.name
}

// Pane returns the resolved pane, or nil before Resolve.
func (p *PaneManager) Pane() Pane {
	return p.pane
}
