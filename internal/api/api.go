// Package api is the session layer's HTTP surface. Every operation that
// touches a window model is trampolined onto the event-loop goroutine, so
// the models stay single-threaded.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jezek/xgb/xproto"
	"github.com/svwm/svwm/internal/build"
	"github.com/svwm/svwm/internal/geometry"
	"github.com/svwm/svwm/internal/xwm"
	"github.com/svwm/svwm/pkg/chiext"
)

type Server struct {
	wm   *xwm.WM
	loop *xwm.Loop
	log  *slog.Logger
	addr string
}

func New(wm *xwm.WM, loop *xwm.Loop, log *slog.Logger, addr string) *Server {
	return &Server{
		wm:   wm,
		loop: loop,
		log:  log.With("component", "api"),
		addr: addr,
	}
}

func (s *Server) String() string { return "api" }

func (s *Server) Serve(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chiext.Logger())
	r.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("svwm", build.Current.Version)
	s.register(humachi.New(r, cfg))

	srv := &http.Server{
		Addr:    s.addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errC := make(chan error, 1)
	go func() { errC <- srv.ListenAndServe() }()
	s.log.Info("Session API listening", "address", s.addr)

	select {
	case <-ctx.Done():
		srv.Close()
		<-errC
		return ctx.Err()
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

//
// Wire types
//

type WMInfo struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Root          uint32 `json:"root"`
	DesktopCount  int    `json:"desktop_count"`
	DesktopWidth  int    `json:"desktop_width"`
	DesktopHeight int    `json:"desktop_height"`
	Windows       int    `json:"windows"`
	Phase         int    `json:"phase"`
}

type WindowSummary struct {
	UUID      string `json:"uuid"`
	XID       uint32 `json:"xid"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Class     string `json:"class"`
	Iconic    bool   `json:"iconic"`
	Workspace int    `json:"workspace"`
}

type WindowDetail struct {
	WindowSummary
	Instance     string            `json:"instance"`
	Role         string            `json:"role"`
	Machine      string            `json:"machine"`
	Command      string            `json:"command"`
	PID          int               `json:"pid"`
	WindowTypes  []string          `json:"window_types"`
	Protocols    []string          `json:"protocols"`
	TransientFor uint32            `json:"transient_for"`
	CanFocus     bool              `json:"can_focus"`
	Geometry     GeometryPayload   `json:"geometry"`
	States       map[string]bool   `json:"states"`
	SizeHints    *SizeHintsPayload `json:"size_hints,omitempty"`
	Children     []ChildPayload    `json:"children,omitempty"`
}

type SizeHintsPayload struct {
	MinWidth   int     `json:"min_width"`
	MinHeight  int     `json:"min_height"`
	MaxWidth   int     `json:"max_width"`
	MaxHeight  int     `json:"max_height"`
	BaseWidth  int     `json:"base_width"`
	BaseHeight int     `json:"base_height"`
	IncWidth   int     `json:"inc_width"`
	IncHeight  int     `json:"inc_height"`
	MinAspect  float64 `json:"min_aspect"`
	MaxAspect  float64 `json:"max_aspect"`
}

type ChildPayload struct {
	XID      uint32          `json:"xid"`
	Geometry GeometryPayload `json:"geometry"`
}

type GeometryPayload struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func summarize(w xwm.Managed) WindowSummary {
	m := w.Base()
	class, _ := m.Prop("class-instance").([2]string)
	title, _ := m.Prop("title").(string)
	workspace, _ := m.Prop("workspace").(int)
	return WindowSummary{
		UUID:      m.UUID,
		XID:       uint32(w.XID()),
		Kind:      w.Kind().String(),
		Title:     title,
		Class:     class[1],
		Iconic:    m.Iconic(),
		Workspace: workspace,
	}
}

func detail(w xwm.Managed) WindowDetail {
	m := w.Base()
	class, _ := m.Prop("class-instance").([2]string)
	role, _ := m.Prop("role").(string)
	machine, _ := m.Prop("client-machine").(string)
	command, _ := m.Prop("command").(string)
	pid, _ := m.Prop("wm-pid").(int)
	types, _ := m.Prop("window-type").([]string)
	protocols, _ := m.Prop("protocols").([]string)
	transientFor, _ := m.Prop("transient-for").(uint32)
	canFocus, _ := m.Prop("can-focus").(bool)
	g := m.Geometry()

	var hints *SizeHintsPayload
	if h, ok := m.Prop("size-hints").(geometry.Hints); ok {
		hints = &SizeHintsPayload{
			MinWidth:   h.MinWidth,
			MinHeight:  h.MinHeight,
			MaxWidth:   h.MaxWidth,
			MaxHeight:  h.MaxHeight,
			BaseWidth:  h.BaseWidth,
			BaseHeight: h.BaseHeight,
			IncWidth:   h.IncWidth,
			IncHeight:  h.IncHeight,
			MinAspect:  h.MinAspect,
			MaxAspect:  h.MaxAspect,
		}
	}
	var children []ChildPayload
	if cs, ok := m.Prop("children").([]xwm.ChildWindow); ok {
		for _, c := range cs {
			children = append(children, ChildPayload{
				XID:      uint32(c.XID),
				Geometry: GeometryPayload{X: c.Geo.X, Y: c.Geo.Y, Width: c.Geo.W, Height: c.Geo.H},
			})
		}
	}

	return WindowDetail{
		WindowSummary: summarize(w),
		Instance:      class[0],
		Role:          role,
		Machine:       machine,
		Command:       command,
		PID:           pid,
		WindowTypes:   types,
		Protocols:     protocols,
		TransientFor:  transientFor,
		CanFocus:      canFocus,
		Geometry:      GeometryPayload{X: g.X, Y: g.Y, Width: g.W, Height: g.H},
		States:        m.State().Projections(),
		SizeHints:     hints,
		Children:      children,
	}
}

//
// Operations
//

type uuidPath struct {
	UUID string `path:"uuid" doc:"window uuid"`
}

func (s *Server) register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-wm",
		Method:      http.MethodGet,
		Path:        "/api/wm",
		Summary:     "Window manager status",
	}, func(ctx context.Context, _ *struct{}) (*struct{ Body WMInfo }, error) {
		out := &struct{ Body WMInfo }{}
		err := s.loop.CallWait(ctx, func() {
			dw, dh := s.wm.DesktopGeometry()
			out.Body = WMInfo{
				Name:          "svwm",
				Version:       build.Current.Version,
				Root:          uint32(s.wm.Root()),
				DesktopCount:  s.wm.DesktopCount(),
				DesktopWidth:  dw,
				DesktopHeight: dh,
				Windows:       len(s.wm.Windows()),
				Phase:         int(s.wm.Phase()),
			}
		})
		return out, err
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-windows",
		Method:      http.MethodGet,
		Path:        "/api/windows",
		Summary:     "List managed windows in mapping order",
	}, func(ctx context.Context, _ *struct{}) (*struct{ Body []WindowSummary }, error) {
		out := &struct{ Body []WindowSummary }{Body: []WindowSummary{}}
		err := s.loop.CallWait(ctx, func() {
			for _, w := range s.wm.Windows() {
				out.Body = append(out.Body, summarize(w))
			}
		})
		return out, err
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-window",
		Method:      http.MethodGet,
		Path:        "/api/windows/{uuid}",
		Summary:     "Window details",
	}, func(ctx context.Context, in *uuidPath) (*struct{ Body WindowDetail }, error) {
		out := &struct{ Body WindowDetail }{}
		err := s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			out.Body = detail(w)
			return nil
		})
		return out, err
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-window",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/close",
		Summary:     "Ask the client to close, killing it if it cannot be asked",
	}, func(ctx context.Context, in *uuidPath) (*struct{}, error) {
		return nil, s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			w.Base().RequestClose()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "focus-window",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/focus",
		Summary:     "Give the window input focus",
	}, func(ctx context.Context, in *uuidPath) (*struct{}, error) {
		return nil, s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			win, ok := w.(*xwm.Window)
			if !ok {
				return huma.Error422UnprocessableEntity("only ordinary windows can be focused")
			}
			win.GiveFocus()
			win.SetActive()
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "raise-window",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/raise",
		Summary:     "Raise the window to the top of the stack",
	}, func(ctx context.Context, in *uuidPath) (*struct{}, error) {
		return nil, s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			if win, ok := w.(*xwm.Window); ok {
				win.Raise()
			} else {
				w.Base().Raise()
			}
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "iconify-window",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/iconify",
		Summary:     "Iconify the window, or map it again",
	}, func(ctx context.Context, in *struct {
		uuidPath
		Body struct {
			Iconic bool `json:"iconic"`
		}
	}) (*struct{}, error) {
		return nil, s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			win, ok := w.(*xwm.Window)
			if !ok {
				return huma.Error422UnprocessableEntity("only ordinary windows can be iconified")
			}
			win.Iconify(in.Body.Iconic)
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-window-geometry",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/geometry",
		Summary:     "Move and resize the window, subject to its size hints",
	}, func(ctx context.Context, in *struct {
		uuidPath
		Body GeometryPayload
	}) (*struct{ Body GeometryPayload }, error) {
		out := &struct{ Body GeometryPayload }{}
		err := s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			switch win := w.(type) {
			case *xwm.Window:
				win.MoveResize(in.Body.X, in.Body.Y, in.Body.Width, in.Body.Height)
			case *xwm.TrayWindow:
				win.MoveResize(in.Body.X, in.Body.Y, in.Body.Width, in.Body.Height)
			default:
				return huma.Error422UnprocessableEntity("override-redirect windows position themselves")
			}
			g := w.Base().Geometry()
			out.Body = GeometryPayload{X: g.X, Y: g.Y, Width: g.W, Height: g.H}
			return nil
		})
		return out, err
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-window-workspace",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/workspace",
		Summary:     "Move the window to a workspace, -1 for all",
	}, func(ctx context.Context, in *struct {
		uuidPath
		Body struct {
			Workspace int `json:"workspace" minimum:"-1"`
		}
	}) (*struct{}, error) {
		return nil, s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			if in.Body.Workspace >= s.wm.DesktopCount() {
				return huma.Error422UnprocessableEntity(
					fmt.Sprintf("workspace %d out of range, have %d", in.Body.Workspace, s.wm.DesktopCount()))
			}
			w.Base().MoveToWorkspace(in.Body.Workspace)
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-window-state",
		Method:      http.MethodPost,
		Path:        "/api/windows/{uuid}/state",
		Summary:     "Flip a named window state like fullscreen or maximized",
	}, func(ctx context.Context, in *struct {
		uuidPath
		Body struct {
			Name  string `json:"name" doc:"state name, e.g. fullscreen, maximized, above"`
			Value bool   `json:"value"`
		}
	}) (*struct{}, error) {
		return nil, s.withWindow(ctx, in.UUID, func(w xwm.Managed) error {
			states := w.Base().State()
			if _, ok := states.Projections()[in.Body.Name]; !ok {
				return huma.Error422UnprocessableEntity("unknown state " + in.Body.Name)
			}
			states.Set(in.Body.Name, in.Body.Value)
			return nil
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "show-desktop",
		Method:      http.MethodPost,
		Path:        "/api/desktop/show",
		Summary:     "Enter or leave showing-desktop mode",
	}, func(ctx context.Context, in *struct {
		Body struct {
			Show bool `json:"show"`
		}
	}) (*struct{}, error) {
		return nil, s.loop.CallWait(ctx, func() {
			s.wm.ShowDesktop(in.Body.Show)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-desktop-geometry",
		Method:      http.MethodPost,
		Path:        "/api/desktop/geometry",
		Summary:     "Resize the desktop and re-clamp every window",
	}, func(ctx context.Context, in *struct {
		Body struct {
			Width  int `json:"width" minimum:"1"`
			Height int `json:"height" minimum:"1"`
		}
	}) (*struct{}, error) {
		return nil, s.loop.CallWait(ctx, func() {
			s.wm.UpdateDesktopGeometry(in.Body.Width, in.Body.Height)
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "adopt-tray-window",
		Method:      http.MethodPost,
		Path:        "/api/tray",
		Summary:     "Bring a system tray icon window under tracking",
	}, func(ctx context.Context, in *struct {
		Body struct {
			XID uint32 `json:"xid" minimum:"1"`
		}
	}) (*struct{ Body WindowSummary }, error) {
		out := &struct{ Body WindowSummary }{}
		var opErr error
		err := s.loop.CallWait(ctx, func() {
			w, err := s.wm.TrackTray(xproto.Window(in.Body.XID))
			if err != nil {
				opErr = huma.Error422UnprocessableEntity(err.Error())
				return
			}
			out.Body = summarize(w)
		})
		if err != nil {
			return nil, err
		}
		if opErr != nil {
			return nil, opErr
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-frame-extents",
		Method:      http.MethodPost,
		Path:        "/api/desktop/frame-extents",
		Summary:     "Change the default frame extents advertised to clients",
	}, func(ctx context.Context, in *struct {
		Body struct {
			Left   uint32 `json:"left"`
			Right  uint32 `json:"right"`
			Top    uint32 `json:"top"`
			Bottom uint32 `json:"bottom"`
		}
	}) (*struct{}, error) {
		return nil, s.loop.CallWait(ctx, func() {
			s.wm.UpdateDefaultFrameExtents([4]uint32{in.Body.Left, in.Body.Right, in.Body.Top, in.Body.Bottom})
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-size-constraints",
		Method:      http.MethodPost,
		Path:        "/api/constraints",
		Summary:     "Update the size policy folded into every window's hints",
	}, func(ctx context.Context, in *struct {
		Body struct {
			MinWidth  int `json:"min_width" minimum:"0"`
			MinHeight int `json:"min_height" minimum:"0"`
			MaxWidth  int `json:"max_width" minimum:"0"`
			MaxHeight int `json:"max_height" minimum:"0"`
		}
	}) (*struct{}, error) {
		return nil, s.loop.CallWait(ctx, func() {
			s.wm.UpdateSizeConstraints(xwm.SizeConstraints{
				MinWidth:  in.Body.MinWidth,
				MinHeight: in.Body.MinHeight,
				MaxWidth:  in.Body.MaxWidth,
				MaxHeight: in.Body.MaxHeight,
			})
		})
	})
}

// withWindow runs fn on the loop goroutine with the resolved window.
func (s *Server) withWindow(ctx context.Context, uuid string, fn func(w xwm.Managed) error) error {
	var opErr error
	err := s.loop.CallWait(ctx, func() {
		w, ok := s.wm.Lookup(uuid)
		if !ok {
			opErr = huma.Error404NotFound("no window " + uuid)
			return
		}
		opErr = fn(w)
	})
	if err != nil {
		return err
	}
	return opErr
}
