package dpcodec

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Decode translates the first message of a device round-trip into a
// canonical LampState.
//
// Power is reported as true whenever the power DP is absent from the
// response. This is a heuristic (a device can genuinely omit the field
// while actually off) preserved from the original implementation: a
// responsive device is presumed on rather than left ambiguous.
func Decode(messages []Message, cfg DeviceConfig) (LampState, error) {
	if len(messages) == 0 {
		return LampState{}, ErrNoMessages
	}
	cfg = cfg.Normalized()

	first := messages[0]
	dps := first.DPs
	if dps == nil {
		parsed, err := decodeStringPayload(first)
		if err != nil {
			return LampState{}, err
		}
		dps = parsed
	}
	if len(dps) == 0 {
		return LampState{}, ErrNoDps
	}

	state := LampState{
		ID:           cfg.ID,
		Name:         cfg.Name,
		Raw:          dps,
		Capabilities: &cfg.Capabilities,
	}

	power := true
	if v, ok := dps.Get(cfg.PowerOnDPID); ok {
		if b, ok := v.(bool); ok {
			power = b
		}
	}
	state.Power = &power

	mode, _ := dps.Get(ModeDPID)
	modeStr, _ := mode.(string)

	switch modeStr {
	case "colour":
		colorStr, ok := dps.Get(ColorDPID)
		s, isStr := colorStr.(string)
		if !ok || !isStr || len(s) < 12 {
			return LampState{}, wrapDecodeErr("malformed colour DP %q", colorStr)
		}
		h, err := hex16(s[0:4])
		if err != nil {
			return LampState{}, wrapDecodeErr("hue: %v", err)
		}
		sat, err := hex16(s[4:8])
		if err != nil {
			return LampState{}, wrapDecodeErr("saturation: %v", err)
		}
		val, err := hex16(s[8:12])
		if err != nil {
			return LampState{}, wrapDecodeErr("brightness: %v", err)
		}

		state.Color = &Color{Mode: ColorModeHS, HS: HS{H: float64(h), S: float64(sat) / 1000}}
		brightness := float64(val) / 1000
		state.Brightness = &brightness

	case "white":
		ctRaw, ok := dps.Get(ColorTempDPID)
		if !ok {
			return LampState{}, wrapDecodeErr("missing color temperature DP %s", ColorTempDPID)
		}
		ctVal, err := numberValue(ctRaw)
		if err != nil {
			return LampState{}, wrapDecodeErr("color temperature: %v", err)
		}
		q := ctVal / 1000
		kelvin := q*(MaxCT-MinCT) + MinCT
		state.Color = &Color{Mode: ColorModeCT, CT: CT{Kelvin: uint16(kelvin + 0.5)}}

		brightnessRaw, ok := dps.Get(BrightnessDPID)
		if !ok {
			return LampState{}, wrapDecodeErr("missing brightness DP %s", BrightnessDPID)
		}
		brightnessVal, err := numberValue(brightnessRaw)
		if err != nil {
			return LampState{}, wrapDecodeErr("brightness: %v", err)
		}
		brightness := (brightnessVal - 10) / 990
		state.Brightness = &brightness
	}

	transition := 500
	state.TransitionMS = &transition

	return state, nil
}

// decodeStringPayload interprets a message whose payload hasn't already been
// parsed into a dps struct by the transport.
func decodeStringPayload(msg Message) (DpMap, error) {
	switch msg.Command {
	case CommandControlNew:
		return nil, ErrIgnoreNext
	case CommandDpQuery, CommandDpQueryNew:
		var envelope struct {
			Dps DpMap `json:"dps"`
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(msg.Raw)))
		dec.UseNumber()
		if err := dec.Decode(&envelope); err != nil {
			return nil, wrapDecodeErr("parsing dps payload: %v", err)
		}
		return envelope.Dps, nil
	default:
		return nil, ErrUnexpectedCommand
	}
}

func hex16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// numberValue extracts a float64 from a JSON scalar. Wire-sourced DpMaps
// decode via json.Decoder.UseNumber (so values arrive as json.Number rather
// than a precision-lossy float64), but DpMaps built in-process by Encode or
// constructed directly in tests hold plain int/float64 values, so both are
// accepted here too.
func numberValue(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, wrapDecodeErr("expected numeric DP value, got %T", v)
	}
}
