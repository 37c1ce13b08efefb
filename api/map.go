package api

import "github.com/ONSdigital/dp-glify-layer/layer"

type namedPane string

func (p namedPane) Name() string { return string(p) }

// headlessMap stands in for a browser map when a layer is drawn on the server.
type headlessMap struct {
	panes map[string]layer.Pane
}

func newHeadlessMap() *headlessMap {
	return &headlessMap{panes: map[string]layer.Pane{layer.DefaultPaneName: namedPane(layer.DefaultPaneName)}}
}

func (m *headlessMap) GetPane(name string) (layer.Pane, bool) {
	p, ok := m.panes[name]
	return p, ok
}

func (m *headlessMap) CreatePane(name string) layer.Pane {
	p := namedPane(name)
	m.panes[name] = p
	return p
}
