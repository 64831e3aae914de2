package xprop

import (
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/xatom"
)

// Checks receives the deferred cookie checks of property writes; the
// error-trap transaction implements it.
type Checks interface {
	Add(op string, check func() error)
}

const (
	// maxPropLen is in 32-bit units, so 256KiB for ordinary properties.
	maxPropLen = 64 * 1024
	// _NET_WM_ICON streams can legitimately reach megabytes.
	maxIconLen = 1024 * 1024
)

// Client reads and writes typed properties on one connection. Reads are
// synchronous round trips; writes only issue requests and park their checks
// in the caller's transaction.
type Client struct {
	conn  *xgb.Conn
	atoms *xatom.Cache
	log   *slog.Logger
}

func NewClient(conn *xgb.Conn, atoms *xatom.Cache, log *slog.Logger) *Client {
	return &Client{conn: conn, atoms: atoms, log: log}
}

func (c *Client) Atoms() *xatom.Cache { return c.atoms }

// GetRaw returns the property bytes, or nil when the property is absent.
func (c *Client) GetRaw(win xproto.Window, name string) ([]byte, error) {
	return c.getRaw(win, name, maxPropLen)
}

func (c *Client) getRaw(win xproto.Window, name string, maxLen uint32) ([]byte, error) {
	atom, err := c.atoms.Intern(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(c.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, maxLen).Reply()
	if err != nil {
		return nil, err
	}
	if reply.Format == 0 {
		return nil, nil
	}
	return reply.Value, nil
}

// decodeWarn logs a malformed property and reports it as absent.
func (c *Client) decodeWarn(win xproto.Window, err error) {
	c.log.Warn("Malformed property", "window", win, "error", err)
}

func (c *Client) GetUTF8(win xproto.Window, name string) (string, bool, error) {
	data, err := c.GetRaw(win, name)
	if err != nil || data == nil {
		return "", false, err
	}
	values := DecodeUTF8List(data)
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

func (c *Client) GetLatin1(win xproto.Window, name string) (string, bool, error) {
	data, err := c.GetRaw(win, name)
	if err != nil || data == nil {
		return "", false, err
	}
	return DecodeLatin1(data), true, nil
}

func (c *Client) GetLatin1List(win xproto.Window, name string) ([]string, error) {
	data, err := c.GetRaw(win, name)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeLatin1List(data), nil
}

func (c *Client) GetU32(win xproto.Window, name string) (uint32, bool, error) {
	values, err := c.GetU32s(win, name)
	if err != nil || len(values) == 0 {
		return 0, false, err
	}
	return values[0], true, nil
}

func (c *Client) GetU32s(win xproto.Window, name string) ([]uint32, error) {
	data, err := c.GetRaw(win, name)
	if err != nil || data == nil {
		return nil, err
	}
	values, err := DecodeU32s(name, data)
	if err != nil {
		c.decodeWarn(win, err)
		return nil, nil
	}
	return values, nil
}

func (c *Client) GetWindow(win xproto.Window, name string) (xproto.Window, bool, error) {
	v, ok, err := c.GetU32(win, name)
	return xproto.Window(v), ok, err
}

// GetAtoms resolves an atom-list property to names, preserving order.
func (c *Client) GetAtoms(win xproto.Window, name string) ([]string, error) {
	values, err := c.GetU32s(win, name)
	if err != nil || values == nil {
		return nil, err
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		n, err := c.atoms.Name(xproto.Atom(v))
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

func (c *Client) GetWMState(win xproto.Window) (uint32, bool, error) {
	data, err := c.GetRaw(win, "WM_STATE")
	if err != nil || data == nil {
		return 0, false, err
	}
	state, _ := DecodeWMState(data)
	return state, true, nil
}

func (c *Client) GetWMHints(win xproto.Window) (WMHints, bool, error) {
	data, err := c.GetRaw(win, "WM_HINTS")
	if err != nil || data == nil {
		return WMHints{}, false, err
	}
	hints, derr := DecodeWMHints(data)
	if derr != nil {
		c.decodeWarn(win, derr)
		return WMHints{}, false, nil
	}
	return hints, true, nil
}

func (c *Client) GetSizeHints(win xproto.Window) (SizeHints, bool, error) {
	data, err := c.GetRaw(win, "WM_NORMAL_HINTS")
	if err != nil || data == nil {
		return SizeHints{}, false, err
	}
	hints, derr := DecodeSizeHints(data)
	if derr != nil {
		c.decodeWarn(win, derr)
		return SizeHints{}, false, nil
	}
	return hints, true, nil
}

func (c *Client) GetMotifHints(win xproto.Window) (MotifHints, bool, error) {
	data, err := c.GetRaw(win, "_MOTIF_WM_HINTS")
	if err != nil || data == nil {
		return MotifHints{}, false, err
	}
	hints, derr := DecodeMotifHints(data)
	if derr != nil {
		c.decodeWarn(win, derr)
		return MotifHints{}, false, nil
	}
	return hints, true, nil
}

func (c *Client) GetStrut(win xproto.Window, name string) (Strut, bool, error) {
	data, err := c.GetRaw(win, name)
	if err != nil || data == nil {
		return Strut{}, false, err
	}
	strut, derr := DecodeStrut(data)
	if derr != nil {
		c.decodeWarn(win, derr)
		return Strut{}, false, nil
	}
	return strut, true, nil
}

func (c *Client) GetIcons(win xproto.Window) ([]Icon, error) {
	data, err := c.getRaw(win, "_NET_WM_ICON", maxIconLen)
	if err != nil || data == nil {
		return nil, err
	}
	return DecodeIcons(data), nil
}

// Set issues a ChangeProperty and parks the check in ck.
func (c *Client) Set(ck Checks, win xproto.Window, name, typeName string, format byte, data []byte) {
	prop, err := c.atoms.Intern(name)
	if err != nil {
		ck.Add("intern "+name, func() error { return err })
		return
	}
	typ, err := c.atoms.Intern(typeName)
	if err != nil {
		ck.Add("intern "+typeName, func() error { return err })
		return
	}
	units := uint32(len(data)) / uint32(format/8)
	cookie := xproto.ChangePropertyChecked(c.conn, xproto.PropModeReplace, win, prop, typ, format, units, data)
	ck.Add("set "+name, cookie.Check)
}

func (c *Client) Delete(ck Checks, win xproto.Window, name string) {
	prop, err := c.atoms.Intern(name)
	if err != nil {
		ck.Add("intern "+name, func() error { return err })
		return
	}
	cookie := xproto.DeletePropertyChecked(c.conn, win, prop)
	ck.Add("delete "+name, cookie.Check)
}

func (c *Client) SetUTF8(ck Checks, win xproto.Window, name, value string) {
	c.Set(ck, win, name, "UTF8_STRING", 8, []byte(value))
}

func (c *Client) SetUTF8List(ck Checks, win xproto.Window, name string, values []string) {
	c.Set(ck, win, name, "UTF8_STRING", 8, EncodeUTF8List(values))
}

func (c *Client) SetLatin1(ck Checks, win xproto.Window, name, value string) {
	c.Set(ck, win, name, "STRING", 8, EncodeLatin1(value))
}

func (c *Client) SetU32s(ck Checks, win xproto.Window, name, typeName string, values ...uint32) {
	c.Set(ck, win, name, typeName, 32, EncodeU32s(values...))
}

func (c *Client) SetCardinal(ck Checks, win xproto.Window, name string, value uint32) {
	c.SetU32s(ck, win, name, "CARDINAL", value)
}

func (c *Client) SetWindow(ck Checks, win xproto.Window, name string, value xproto.Window) {
	c.SetU32s(ck, win, name, "WINDOW", uint32(value))
}

func (c *Client) SetWindows(ck Checks, win xproto.Window, name string, values []xproto.Window) {
	u := make([]uint32, len(values))
	for i, v := range values {
		u[i] = uint32(v)
	}
	c.SetU32s(ck, win, name, "WINDOW", u...)
}

// SetAtoms interns every name, preserving order on the wire.
func (c *Client) SetAtoms(ck Checks, win xproto.Window, name string, names []string) {
	values := make([]uint32, 0, len(names))
	for _, n := range names {
		atom, err := c.atoms.Intern(n)
		if err != nil {
			ck.Add("intern "+n, func() error { return err })
			return
		}
		values = append(values, uint32(atom))
	}
	c.SetU32s(ck, win, name, "ATOM", values...)
}

func (c *Client) SetWMState(ck Checks, win xproto.Window, state uint32) {
	c.Set(ck, win, "WM_STATE", "WM_STATE", 32, EncodeWMState(state))
}
