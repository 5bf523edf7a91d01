package dpcodec

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Color temperature bounds this codec assumes the device class supports.
const (
	MinCT = 2700
	MaxCT = 6500
)

// Well-known DP ids used by this device class.
const (
	DefaultPowerOnDPID = "20"
	ModeDPID           = "21"
	BrightnessDPID     = "22"
	ColorTempDPID      = "23"
	ColorDPID          = "24"
)

var (
	// ErrIgnoreNext signals that the device will send a follow-up echo that
	// must be discarded by the caller; it is not a decode failure.
	ErrIgnoreNext = errors.New("dpcodec: ignore next message")

	ErrNoMessages        = errors.New("dpcodec: no messages in response")
	ErrUnexpectedCommand = errors.New("dpcodec: unexpected command type")
	ErrNoDps             = errors.New("dpcodec: response has no dps")
	ErrDecode            = errors.New("dpcodec: decode error")
)

// CommandType identifies the wire-level command a Message was received (or
// sent) for. Only the subset relevant to state decoding is named here; the
// device link owns the full command set.
type CommandType string

const (
	CommandControlNew CommandType = "controlNew"
	CommandDpQuery    CommandType = "dpQuery"
	CommandDpQueryNew CommandType = "dpQueryNew"
)

// Message is one decoded frame from a device round-trip. Either DPs is set
// (the transport already parsed a dps struct out of the frame) or Raw holds
// the frame's string payload for Decode to interpret according to Command.
type Message struct {
	Command CommandType
	DPs     DpMap
	Raw     string
}

// ColorMode distinguishes chromatic (hue/saturation) from achromatic
// (color-temperature) color state. The device class supports exactly one at
// a time.
type ColorMode int

const (
	ColorModeNone ColorMode = iota
	ColorModeHS
	ColorModeCT
)

// HS is a hue/saturation color point. H is in degrees [0,360), S is a
// fraction [0,1].
type HS struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
}

// CT is an achromatic color temperature point, in kelvin.
type CT struct {
	Kelvin uint16 `json:"kelvin"`
}

// Color is a tagged union of HS and CT, matching the bus wire shape
// {"hs": {...}} or {"ct_kelvin": N}.
type Color struct {
	Mode ColorMode
	HS   HS
	CT   CT
}

type colorWire struct {
	HS       *HS  `json:"hs,omitempty"`
	CTKelvin *int `json:"ct_kelvin,omitempty"`
}

// MarshalJSON renders the Color in whichever of the two wire shapes matches
// its Mode.
func (c Color) MarshalJSON() ([]byte, error) {
	switch c.Mode {
	case ColorModeHS:
		return json.Marshal(colorWire{HS: &c.HS})
	case ColorModeCT:
		k := int(c.CT.Kelvin)
		return json.Marshal(colorWire{CTKelvin: &k})
	default:
		return json.Marshal(colorWire{})
	}
}

// UnmarshalJSON parses whichever of the two wire shapes is present.
func (c *Color) UnmarshalJSON(data []byte) error {
	var w colorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.HS != nil:
		*c = Color{Mode: ColorModeHS, HS: *w.HS}
	case w.CTKelvin != nil:
		*c = Color{Mode: ColorModeCT, CT: CT{Kelvin: uint16(*w.CTKelvin)}}
	default:
		*c = Color{}
	}
	return nil
}

// CTRange is an inclusive color-temperature range, in kelvin.
type CTRange struct {
	Min uint16 `json:"min" yaml:"min"`
	Max uint16 `json:"max" yaml:"max"`
}

// Capabilities describes what color modes a device supports.
type Capabilities struct {
	HS bool     `json:"hs" yaml:"hs"`
	CT *CTRange `json:"ct,omitempty" yaml:"ct,omitempty"`
}

// DefaultCapabilities is assumed for any device whose config leaves
// Capabilities unset.
func DefaultCapabilities() Capabilities {
	return Capabilities{HS: true, CT: &CTRange{Min: MinCT, Max: MaxCT}}
}

// LampState is the canonical, bus-facing representation of one lamp.
// Optional fields denote "unchanged" on ingress (a bus command that omits
// brightness leaves brightness untouched) and "unknown" on egress (a decode
// that can't determine color leaves it nil).
type LampState struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Power        *bool         `json:"power,omitempty"`
	Brightness   *float64      `json:"brightness,omitempty"`
	Color        *Color        `json:"color,omitempty"`
	TransitionMS *int          `json:"transition_ms,omitempty"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	Raw          DpMap         `json:"raw,omitempty"`
}

// DeviceConfig is the immutable-per-session description of one device.
type DeviceConfig struct {
	ID            string
	Name          string
	Version       string
	Address       string
	LocalKey      string
	PowerOnDPID   string
	MaxBrightness float64
	Capabilities  Capabilities
	BusTopic      string
}

// Normalized returns a copy of cfg with zero-valued overrides replaced by
// their documented defaults.
func (cfg DeviceConfig) Normalized() DeviceConfig {
	if cfg.PowerOnDPID == "" {
		cfg.PowerOnDPID = DefaultPowerOnDPID
	}
	if cfg.MaxBrightness <= 0 {
		cfg.MaxBrightness = 1
	}
	if !cfg.Capabilities.HS && cfg.Capabilities.CT == nil {
		cfg.Capabilities = DefaultCapabilities()
	}
	return cfg
}

func (c CommandType) String() string {
	return string(c)
}

func wrapDecodeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}
