package xwm

import (
	"reflect"

	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xproto"
)

const (
	shapeKindBounding = shape.SkBounding
	shapeKindClip     = shape.SkClip
)

// selectShapeInput asks for shape notify events on the client window. The
// extension client panics on requests when Init never ran, so every shape
// call is gated on HasShape.
func (m *Model) selectShapeInput() {
	if !m.HasShape {
		return
	}
	cookie := shape.SelectInputChecked(m.conn, m.xid, true)
	m.trap.Add("shape select input", cookie.Check)
}

func (m *Model) shapeRectangles(kind shape.Kind) []xproto.Rectangle {
	if !m.HasShape {
		return nil
	}
	reply, err := shape.GetRectangles(m.conn, m.xid, kind).Reply()
	if err != nil || reply == nil {
		return nil
	}
	return reply.Rectangles
}

// shapeChanged compares everything except the serial, so a burst of events
// that leaves the shape untouched does not notify.
func shapeChanged(old, new shapeInfo) bool {
	return !reflect.DeepEqual(old.Bounding, new.Bounding) || !reflect.DeepEqual(old.Clip, new.Clip)
}
