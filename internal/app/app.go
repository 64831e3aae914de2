// Package app wires the display connection, the window manager core and the
// session API together under one supervisor.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shape"
	"github.com/jezek/xgb/xproto"
	"github.com/k0kubun/pp"
	"github.com/svwm/svwm/internal/api"
	"github.com/svwm/svwm/internal/bus"
	"github.com/svwm/svwm/internal/config"
	"github.com/svwm/svwm/internal/xatom"
	"github.com/svwm/svwm/internal/xdispatch"
	"github.com/svwm/svwm/internal/xprop"
	"github.com/svwm/svwm/internal/xtrap"
	"github.com/svwm/svwm/internal/xwm"
	"github.com/svwm/svwm/pkg/sutureext"
	"github.com/svwm/svwm/xcursor"
)

func Run(ctx context.Context, store *config.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := store.GetConfig()
	if err != nil {
		return err
	}
	log := slog.Default()
	log.Debug("Loaded config", "config", pp.Sprint(cfg))

	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("connect to display: %w", err)
	}
	defer conn.Close()

	hasShape := true
	if err := shape.Init(conn); err != nil {
		// shaped window tracking degrades to rectangles
		log.Warn("Shape extension unavailable", "error", err)
		hasShape = false
	}

	screen := xproto.Setup(conn).DefaultScreen(conn)

	router := xdispatch.NewRouter(log)
	trap := xtrap.New(log)
	props := xprop.NewClient(conn, xatom.NewCache(conn), log)
	b := bus.New()
	loop := xwm.NewLoop(conn, router, log)

	wm := xwm.New(conn, screen, props, trap, router, b, log, loop, xwm.Config{
		Name:           cfg.WMName,
		Replace:        cfg.ReplaceExisting,
		DesktopCount:   len(cfg.Desktops),
		DesktopNames:   cfg.Desktops,
		CurrentDesktop: cfg.CurrentDesktop,
		ClampOverlap:   cfg.ClampOverlap,
		FrameExtents:   cfg.FrameExtents,
		HasShape:       hasShape,
		SizeConstraints: xwm.SizeConstraints{
			MinWidth:  cfg.SizeConstraints.MinWidth,
			MinHeight: cfg.SizeConstraints.MinHeight,
			MaxWidth:  cfg.SizeConstraints.MaxWidth,
			MaxHeight: cfg.SizeConstraints.MaxHeight,
		},
		OnQuit: cancel,
	})

	setRootCursor(conn, screen.Root, log)

	if err := wm.Setup(); err != nil {
		return fmt.Errorf("take over screen: %w", err)
	}
	defer wm.Cleanup()

	super := sutureext.NewSimple("svwm")
	sutureext.Add(super, sutureext.NewServiceFunc("xwm.loop", loop.Serve))
	sutureext.Add(super, api.New(wm, loop, log, cfg.HTTPAddress))

	return super.Serve(ctx)
}

// setRootCursor gives the root window a left pointer; without it the server
// shows the default X cross.
func setRootCursor(conn *xgb.Conn, root xproto.Window, log *slog.Logger) {
	cursor, err := xcursor.CreateCursor(conn, xcursor.LeftPtr)
	if err != nil {
		log.Warn("Failed to create root cursor", "error", err)
		return
	}
	if err := xproto.ChangeWindowAttributesChecked(conn, root,
		xproto.CwCursor, []uint32{uint32(cursor)}).Check(); err != nil {
		log.Warn("Failed to set root cursor", "error", err)
	}
}
