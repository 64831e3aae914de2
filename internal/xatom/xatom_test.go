package xatom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededLookups(t *testing.T) {
	c := NewCache(nil)
	c.Seed("_NET_WM_STATE", 301)
	c.Seed("WM_PROTOCOLS", 302)

	atom, err := c.Intern("_NET_WM_STATE")
	require.NoError(t, err)
	assert.Equal(t, uint32(301), uint32(atom))

	name, err := c.Name(302)
	require.NoError(t, err)
	assert.Equal(t, "WM_PROTOCOLS", name)

	assert.Equal(t, uint32(301), uint32(c.MustIntern("_NET_WM_STATE")))
}

func TestNameZeroAtom(t *testing.T) {
	c := NewCache(nil)
	name, err := c.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "", name)
}
