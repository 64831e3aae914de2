package xwm

// A few words about _NET_WM_STATE are in order. It is a set of flags. The
// client sets the initial value before mapping; after that only the window
// manager may touch the property. We keep our idea of its value as a bitset
// and mirror every modification back to the X property. User-facing booleans
// like "maximized" are virtual: they are projections of the set, never
// stored separately.

type State uint16

const (
	StateFullscreen State = 1 << iota
	StateMaximizedVert
	StateMaximizedHorz
	StateShaded
	StateAbove
	StateBelow
	StateSticky
	StateSkipTaskbar
	StateSkipPager
	StateModal
	StateDemandsAttention
	StateFocused
	StateHidden
)

var stateAtoms = map[State]string{
	StateFullscreen:       "_NET_WM_STATE_FULLSCREEN",
	StateMaximizedVert:    "_NET_WM_STATE_MAXIMIZED_VERT",
	StateMaximizedHorz:    "_NET_WM_STATE_MAXIMIZED_HORZ",
	StateShaded:           "_NET_WM_STATE_SHADED",
	StateAbove:            "_NET_WM_STATE_ABOVE",
	StateBelow:            "_NET_WM_STATE_BELOW",
	StateSticky:           "_NET_WM_STATE_STICKY",
	StateSkipTaskbar:      "_NET_WM_STATE_SKIP_TASKBAR",
	StateSkipPager:        "_NET_WM_STATE_SKIP_PAGER",
	StateModal:            "_NET_WM_STATE_MODAL",
	StateDemandsAttention: "_NET_WM_STATE_DEMANDS_ATTENTION",
	StateFocused:          "_NET_WM_STATE_FOCUSED",
	StateHidden:           "_NET_WM_STATE_HIDDEN",
}

// stateProjections maps each user-facing boolean to the flags that must ALL
// be present for it to read true. Only "maximized" needs more than one.
var stateProjections = map[string]State{
	"fullscreen":          StateFullscreen,
	"maximized":           StateMaximizedVert | StateMaximizedHorz,
	"shaded":              StateShaded,
	"above":               StateAbove,
	"below":               StateBelow,
	"sticky":              StateSticky,
	"skip-taskbar":        StateSkipTaskbar,
	"skip-pager":          StateSkipPager,
	"modal":               StateModal,
	"attention-requested": StateDemandsAttention,
	"focused":             StateFocused,
}

// StateFromAtom resolves a _NET_WM_STATE_* atom name, 0 if unknown.
func StateFromAtom(name string) State {
	for flag, atom := range stateAtoms {
		if atom == name {
			return flag
		}
	}
	return 0
}

// AtomNames lists the atoms of every set flag. A window should not be
// focused and hidden at the same time, so hidden is dropped when focused is
// present; see the wm-spec-list discussion from May 2005.
func (s State) AtomNames() []string {
	if s&StateFocused != 0 {
		s &^= StateHidden
	}
	var names []string
	for flag := State(1); flag <= StateHidden; flag <<= 1 {
		if s&flag != 0 {
			names = append(names, stateAtoms[flag])
		}
	}
	return names
}

// StateSet applies add/remove updates atomically and notifies only the
// projections whose derived value actually flipped. The write-back and
// notify callbacks are injected so the engine stays testable without a
// display.
type StateSet struct {
	current State

	// writeBack mirrors the new set to _NET_WM_STATE.
	writeBack func(State)
	// notify reports a flipped projection to the sync engine.
	notify func(name string, value bool)
}

func NewStateSet(writeBack func(State), notify func(name string, value bool)) *StateSet {
	return &StateSet{writeBack: writeBack, notify: notify}
}

func (s *StateSet) Current() State { return s.current }

// Reset installs the initial client-declared state without write-back or
// notification; the initial read runs before setup completes.
func (s *StateSet) Reset(state State) {
	s.current = state
}

// Projections snapshots every named projection with its current value.
func (s *StateSet) Projections() map[string]bool {
	out := make(map[string]bool, len(stateProjections))
	for name, flags := range stateProjections {
		out[name] = s.Has(flags)
	}
	return out
}

// Has reports whether all the given flags are present.
func (s *StateSet) Has(flags State) bool {
	return s.current&flags == flags
}

// Get reads a projection; true when every backing flag is present.
func (s *StateSet) Get(name string) bool {
	flags, ok := stateProjections[name]
	return ok && s.Has(flags)
}

// Set writes a projection by routing through Update.
func (s *StateSet) Set(name string, value bool) {
	flags, ok := stateProjections[name]
	if !ok {
		return
	}
	if value {
		s.Update(flags, 0)
	} else {
		s.Update(0, flags)
	}
}

// Update applies the changed flags in one step. If nothing changes, neither
// the write-back nor any notification fires.
func (s *StateSet) Update(add, remove State) {
	was := s.current
	now := (was | add) &^ remove
	if now == was {
		return
	}
	s.current = now
	if s.writeBack != nil {
		s.writeBack(now)
	}
	if s.notify == nil {
		return
	}
	for name, flags := range stateProjections {
		before := was&flags == flags
		after := now&flags == flags
		if before != after {
			s.notify(name, after)
		}
	}
}
