package xwm

import (
	"reflect"

	"github.com/svwm/svwm/internal/bus"
)

// Exposure classifies a model attribute for the session layer.
type Exposure int

const (
	// Internal attributes are bookkeeping, never surfaced downstream.
	Internal Exposure = iota
	// ExposedStatic attributes are readable but not change-notified.
	ExposedStatic
	// ExposedDynamic attributes notify the session layer on every change.
	ExposedDynamic
)

// The property synchronization engine: two handler tables bind wire
// properties to model attributes. wireHandlers run on PropertyNotify (or
// during the initial read); writeHandlers run when the named attribute
// changes, once setup has completed and while the window is managed.
// Variants extend the tables in their constructors, never replace them.

// bindWire registers the wire-to-model handler for an atom.
func (m *Model) bindWire(atom string, handler func() error) {
	m.wireHandlers[atom] = handler
}

// bindInitial registers a wire handler and queues the atom for the initial
// bulk read. The read order is the registration order.
func (m *Model) bindInitial(atom string, handler func() error) {
	m.bindWire(atom, handler)
	m.initialProps = append(m.initialProps, atom)
}

// bindWrite registers the model-to-wire handler for an attribute.
func (m *Model) bindWrite(attr string, handler func()) {
	m.writeHandlers[attr] = handler
}

func (m *Model) expose(attr string, e Exposure) {
	m.exposure[attr] = e
}

// updateProp stores a model attribute, returning whether the value actually
// changed. Notifications only fire on change: wire writes are costly, and
// no-op updates are how the two sync directions would otherwise feed back
// into each other (FSF Emacs 21 re-sets its properties on every
// ConfigureNotify it sees).
func (m *Model) updateProp(name string, value any) bool {
	old, ok := m.values[name]
	if ok && reflect.DeepEqual(old, value) {
		return false
	}
	m.values[name] = value
	m.notifyProp(name)
	return true
}

// notifyProp runs the attribute's model-to-wire handler and publishes the
// change upward when the attribute is exposed-dynamic. Suppressed until
// setup completes: the initial read must not echo values straight back.
func (m *Model) notifyProp(name string) {
	if !m.setupDone || m.lifecycle != LifecycleManaged {
		return
	}
	if handler := m.writeHandlers[name]; handler != nil {
		handler()
	}
	if m.exposure[name] == ExposedDynamic {
		m.bus.WindowChanged.Publish(bus.WindowChanged{UUID: m.UUID, XID: uint32(m.xid), Property: name})
	}
}

// Prop reads a model attribute, nil when unset.
func (m *Model) Prop(name string) any {
	return m.values[name]
}

func (m *Model) propStr(name string) string {
	v, _ := m.values[name].(string)
	return v
}

func (m *Model) propInt(name string) int {
	v, _ := m.values[name].(int)
	return v
}

func (m *Model) propBool(name string) bool {
	v, _ := m.values[name].(bool)
	return v
}

func (m *Model) propStrs(name string) []string {
	v, _ := m.values[name].([]string)
	return v
}

// readInitialProps performs the one-transaction bulk read of the wire
// properties, in registration order. State is registered before hints:
// urgency from WM_HINTS assumes the state set is already known. Handler
// errors propagate and fail the whole manage attempt.
func (m *Model) readInitialProps() error {
	seen := make(map[string]bool, len(m.initialProps))
	for _, atom := range m.initialProps {
		if seen[atom] {
			continue
		}
		seen[atom] = true
		handler := m.wireHandlers[atom]
		if err := handler(); err != nil {
			return err
		}
	}
	return nil
}

// handlePropertyChange routes a PropertyNotify after setup; handler errors
// are logged, never propagated.
func (m *Model) handlePropertyChange(atom string) {
	handler := m.wireHandlers[atom]
	if handler == nil {
		return
	}
	if err := handler(); err != nil {
		m.log.Warn("Property handler failed", "window", m.xid, "property", atom, "error", err)
	}
}
