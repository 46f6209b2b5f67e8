package fulfillment

import (
	"encoding/json"
	"fmt"

	"github.com/homedcloud/homed-cloud/internal/google"
)

// Intent names of the Smart Home fulfillment interface.
const (
	intentSync       = "action.devices.SYNC"
	intentQuery      = "action.devices.QUERY"
	intentExecute    = "action.devices.EXECUTE"
	intentDisconnect = "action.devices.DISCONNECT"
)

const commandPrefix = "action.devices.commands."

// Colour temperature bounds accepted on ColorAbsolute, in Kelvin.
const (
	minTemperatureK = 1000
	maxTemperatureK = 25000
)

// fulfillmentRequest is the intent envelope POSTed by Google.
type fulfillmentRequest struct {
	RequestID string        `json:"requestId"`
	Inputs    []intentInput `json:"inputs"`
}

// intentInput carries one intent. The payload shape depends on the
// intent, so decoding happens in two stages.
type intentInput struct {
	Intent  string
	Query   *queryPayload
	Execute *executePayload
}

func (i *intentInput) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Intent  string          `json:"intent"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	i.Intent = tmp.Intent
	switch tmp.Intent {
	case intentQuery:
		payload := &queryPayload{}
		if err := json.Unmarshal(tmp.Payload, payload); err != nil {
			return err
		}
		i.Query = payload
	case intentExecute:
		payload := &executePayload{}
		if err := json.Unmarshal(tmp.Payload, payload); err != nil {
			return err
		}
		i.Execute = payload
	}
	return nil
}

type deviceRef struct {
	ID string `json:"id"`
}

type queryPayload struct {
	Devices []deviceRef `json:"devices"`
}

type executePayload struct {
	Commands []executeGroup `json:"commands"`
}

// executeGroup pairs a set of target devices with the commands to run on
// all of them.
type executeGroup struct {
	Devices   []deviceRef     `json:"devices"`
	Execution []executionSpec `json:"execution"`
}

type executionSpec struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

// parseRequest decodes and validates the intent envelope. Exactly one
// input is accepted.
func parseRequest(body []byte) (*fulfillmentRequest, error) {
	req := &fulfillmentRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(req.Inputs) != 1 {
		return nil, fmt.Errorf("%w: want exactly one input, got %d", ErrInvalidRequest, len(req.Inputs))
	}
	return req, nil
}

// decodeCommand translates one execution entry into a typed command.
func decodeCommand(spec executionSpec) (google.Command, error) {
	switch spec.Command {
	case commandPrefix + "OnOff":
		var p struct {
			On *bool `json:"on"`
		}
		if err := json.Unmarshal(spec.Params, &p); err != nil || p.On == nil {
			return nil, fmt.Errorf("%w: OnOff params", ErrInvalidRequest)
		}
		return google.OnOffCommand{On: *p.On}, nil

	case commandPrefix + "BrightnessAbsolute":
		var p struct {
			Brightness *float64 `json:"brightness"`
		}
		if err := json.Unmarshal(spec.Params, &p); err != nil || p.Brightness == nil {
			return nil, fmt.Errorf("%w: BrightnessAbsolute params", ErrInvalidRequest)
		}
		return google.BrightnessAbsoluteCommand{Brightness: *p.Brightness}, nil

	case commandPrefix + "ColorAbsolute":
		var p struct {
			Color *struct {
				SpectrumRGB *int `json:"spectrumRgb"`
				SpectrumHSV *struct {
					Hue        float64 `json:"hue"`
					Saturation float64 `json:"saturation"`
					Value      float64 `json:"value"`
				} `json:"spectrumHsv"`
				TemperatureK *int `json:"temperatureK"`
			} `json:"color"`
		}
		if err := json.Unmarshal(spec.Params, &p); err != nil || p.Color == nil {
			return nil, fmt.Errorf("%w: ColorAbsolute params", ErrInvalidRequest)
		}
		switch {
		case p.Color.SpectrumRGB != nil:
			return google.ColorAbsoluteCommand{Color: google.SpectrumRGB(*p.Color.SpectrumRGB)}, nil
		case p.Color.SpectrumHSV != nil:
			return google.ColorAbsoluteCommand{Color: google.SpectrumHSV{
				Hue:        p.Color.SpectrumHSV.Hue,
				Saturation: p.Color.SpectrumHSV.Saturation,
				Value:      p.Color.SpectrumHSV.Value,
			}}, nil
		case p.Color.TemperatureK != nil:
			k := *p.Color.TemperatureK
			if k < minTemperatureK || k > maxTemperatureK {
				return nil, fmt.Errorf("%w: temperatureK %d out of range", ErrInvalidRequest, k)
			}
			return google.ColorAbsoluteCommand{Color: google.TemperatureK(k)}, nil
		default:
			return nil, fmt.Errorf("%w: ColorAbsolute needs a colour value", ErrInvalidRequest)
		}

	case commandPrefix + "OpenClose":
		var p struct {
			OpenPercent *float64 `json:"openPercent"`
		}
		if err := json.Unmarshal(spec.Params, &p); err != nil {
			return nil, fmt.Errorf("%w: OpenClose params", ErrInvalidRequest)
		}
		percent := 100.0
		if p.OpenPercent != nil {
			percent = *p.OpenPercent
		}
		return google.OpenCloseCommand{OpenPercent: percent}, nil

	case commandPrefix + "ThermostatTemperatureSetpoint":
		var p struct {
			Setpoint *float64 `json:"thermostatTemperatureSetpoint"`
		}
		if err := json.Unmarshal(spec.Params, &p); err != nil || p.Setpoint == nil {
			return nil, fmt.Errorf("%w: ThermostatTemperatureSetpoint params", ErrInvalidRequest)
		}
		return google.ThermostatTemperatureSetpointCommand{Setpoint: *p.Setpoint}, nil

	case commandPrefix + "ThermostatSetMode":
		var p struct {
			Mode string `json:"thermostatMode"`
		}
		if err := json.Unmarshal(spec.Params, &p); err != nil || p.Mode == "" {
			return nil, fmt.Errorf("%w: ThermostatSetMode params", ErrInvalidRequest)
		}
		return google.ThermostatSetModeCommand{Mode: p.Mode}, nil
	}

	return nil, fmt.Errorf("%w: unsupported command %q", ErrInvalidRequest, spec.Command)
}

// Response envelopes.

type syncResponse struct {
	RequestID string      `json:"requestId"`
	Payload   syncPayload `json:"payload"`
}

type syncPayload struct {
	AgentUserID string          `json:"agentUserId"`
	Devices     []google.Device `json:"devices"`
}

type queryResponse struct {
	RequestID string       `json:"requestId"`
	Payload   queryResults `json:"payload"`
}

type queryResults struct {
	Devices map[string]google.DeviceState `json:"devices"`
}

type executeResponse struct {
	RequestID string         `json:"requestId"`
	Payload   executeResults `json:"payload"`
}

type executeResults struct {
	Commands []commandResult `json:"commands"`
}

type commandResult struct {
	IDs       []string `json:"ids"`
	Status    string   `json:"status"`
	ErrorCode string   `json:"errorCode,omitempty"`
}
