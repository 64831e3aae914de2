// Package xatom caches atom interning so that property handlers can work
// with atom names instead of raw ids without a server round trip per lookup.
// The cache is only touched from the event loop goroutine.
package xatom

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

type Cache struct {
	conn   *xgb.Conn
	byName map[string]xproto.Atom
	byAtom map[xproto.Atom]string
}

func NewCache(conn *xgb.Conn) *Cache {
	return &Cache{
		conn:   conn,
		byName: make(map[string]xproto.Atom),
		byAtom: make(map[xproto.Atom]string),
	}
}

// Seed registers a known pair without a round trip, used by tests.
func (c *Cache) Seed(name string, atom xproto.Atom) {
	c.byName[name] = atom
	c.byAtom[atom] = name
}

// Intern returns the atom for name, creating it on the server if missing.
func (c *Cache) Intern(name string) (xproto.Atom, error) {
	if atom, ok := c.byName[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	c.Seed(name, reply.Atom)
	return reply.Atom, nil
}

// InternAll resolves a batch of names, pipelining the round trips.
func (c *Cache) InternAll(names ...string) error {
	type pending struct {
		name   string
		cookie xproto.InternAtomCookie
	}
	var cookies []pending
	for _, name := range names {
		if _, ok := c.byName[name]; ok {
			continue
		}
		cookies = append(cookies, pending{name, xproto.InternAtom(c.conn, false, uint16(len(name)), name)})
	}
	for _, p := range cookies {
		reply, err := p.cookie.Reply()
		if err != nil {
			return err
		}
		c.Seed(p.name, reply.Atom)
	}
	return nil
}

// Name resolves an atom id back to its name.
func (c *Cache) Name(atom xproto.Atom) (string, error) {
	if atom == 0 {
		return "", nil
	}
	if name, ok := c.byAtom[atom]; ok {
		return name, nil
	}
	reply, err := xproto.GetAtomName(c.conn, atom).Reply()
	if err != nil {
		return "", err
	}
	c.Seed(reply.Name, atom)
	return reply.Name, nil
}

// MustIntern is for atoms that are known to resolve (already seeded or
// predefined); it returns 0 when the round trip fails.
func (c *Cache) MustIntern(name string) xproto.Atom {
	atom, err := c.Intern(name)
	if err != nil {
		return 0
	}
	return atom
}
