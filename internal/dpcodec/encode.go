package dpcodec

import (
	"fmt"
	"math"
)

// Encode translates a canonical LampState into a device DP map. Encoding is
// total: it never fails, it simply omits DPs for fields that are nil.
//
// Order matters: devices ignore color updates unless the mode DP ("21") is
// the last entry, which is why brightness is written before color and the
// mode DP is appended only after the color-specific DP.
func Encode(state LampState, cfg DeviceConfig) DpMap {
	cfg = cfg.Normalized()
	var dps DpMap

	if state.Power != nil {
		dps.Set(cfg.PowerOnDPID, *state.Power)
	}

	if state.Brightness != nil {
		v := math.Floor(*state.Brightness*990) + 10
		dps.Set(BrightnessDPID, int(clamp(v, 10, 1000)))
	}

	if state.Color != nil {
		switch state.Color.Mode {
		case ColorModeHS:
			hue := int16(state.Color.HS.H)
			sat := int16(math.Floor(state.Color.HS.S * 1000))

			maxBrightness := cfg.MaxBrightness
			brightness := 1.0
			if state.Brightness != nil {
				brightness = *state.Brightness
			}
			val := int16(math.Floor(math.Min(brightness, maxBrightness) * 1000))

			dps.Set(ColorDPID, fmt.Sprintf("%04x%04x%04x", uint16(hue), uint16(sat), uint16(val)))
			dps.Set(ModeDPID, "colour")

		case ColorModeCT:
			q := clamp((float64(state.Color.CT.Kelvin)-MinCT)/(MaxCT-MinCT), 0, 1)
			dps.Set(ColorTempDPID, int(math.Floor(q*1000)))
			dps.Set(ModeDPID, "white")
		}
	}

	return dps
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
