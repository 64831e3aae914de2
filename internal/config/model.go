package config

// MaxWindowSize is the default upper bound for the size constraint policy.
const MaxWindowSize = 2<<14 - 1

var defaultConfig = Config{
	WMName:          "svwm",
	ReplaceExisting: false,
	Desktops:        []string{"Main"},
	CurrentDesktop:  0,
	SizeConstraints: SizeConstraints{
		MinWidth:  0,
		MinHeight: 0,
		MaxWidth:  MaxWindowSize,
		MaxHeight: MaxWindowSize,
	},
	FrameExtents: [4]uint32{0, 0, 0, 0},
	ClampOverlap: 20,
	HTTPAddress:  "127.0.0.1:8086",
}

type Config struct {
	WMName          string          `json:"wm_name" yaml:"wm_name"`
	ReplaceExisting bool            `json:"replace_existing" yaml:"replace_existing"`
	Desktops        []string        `json:"desktops" yaml:"desktops"`
	CurrentDesktop  uint32          `json:"current_desktop" yaml:"current_desktop"`
	SizeConstraints SizeConstraints `json:"size_constraints" yaml:"size_constraints"`
	FrameExtents    [4]uint32       `json:"frame_extents" yaml:"frame_extents"`
	ClampOverlap    int             `json:"clamp_overlap" yaml:"clamp_overlap"`
	HTTPAddress     string          `json:"http_address" yaml:"http_address"`
}

// SizeConstraints is the server-imposed size policy merged into every
// window's client-declared hints.
type SizeConstraints struct {
	MinWidth  int `json:"min_width" yaml:"min_width"`
	MinHeight int `json:"min_height" yaml:"min_height"`
	MaxWidth  int `json:"max_width" yaml:"max_width"`
	MaxHeight int `json:"max_height" yaml:"max_height"`
}

func (c Config) Normalize() Config {
	if c.WMName == "" {
		c.WMName = defaultConfig.WMName
	}
	if len(c.Desktops) == 0 {
		c.Desktops = defaultConfig.Desktops
	}
	if int(c.CurrentDesktop) >= len(c.Desktops) {
		c.CurrentDesktop = 0
	}
	if c.SizeConstraints.MaxWidth <= 0 {
		c.SizeConstraints.MaxWidth = MaxWindowSize
	}
	if c.SizeConstraints.MaxHeight <= 0 {
		c.SizeConstraints.MaxHeight = MaxWindowSize
	}
	if c.ClampOverlap < 0 {
		c.ClampOverlap = defaultConfig.ClampOverlap
	}
	if c.HTTPAddress == "" {
		c.HTTPAddress = defaultConfig.HTTPAddress
	}
	return c
}
