package testutil

import "github.com/vk/stagegrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single action or preparer.
type SimpleModule struct {
	ActionName string
	Action     *registry.RegisteredAction

	PreparerName string
	Preparer     *registry.RegisteredPreparer
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.ActionName != "" && m.Action != nil {
		r.RegisterAction(m.ActionName, m.Action)
	}
	if m.PreparerName != "" && m.Preparer != nil {
		r.RegisterPreparer(m.PreparerName, m.Preparer)
	}
}
