// SPDX-License-Identifier: MIT

package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Framed stdio protocol: every message, in either direction, is one
// JSON object terminated by a newline. The child process never sends
// anything that isn't a direct response to the last request, so the
// driver is strictly request/response — no out-of-band push channel is
// needed for configure/start/stop/shutdown.

// Verb identifies a request's kind.
type Verb string

const (
	VerbConfigure       Verb = "configure"
	VerbStartRecord     Verb = "start_recording"
	VerbStopRecord      Verb = "stop_recording"
	VerbShutdown        Verb = "shutdown"
	VerbEncoders        Verb = "available_encoders"
	VerbSelectedEncoder Verb = "selected_encoder"
)

// RateControl selects the engine's rate-control mode. Only constant
// quantization parameter (CQP) is modeled, per spec.md §4.4's
// `rate_control: CQP(q)`.
type RateControl struct {
	Mode    string `json:"mode"` // always "cqp"
	Quality int    `json:"quality"`
}

// CQP builds a constant-quantization-parameter rate control setting.
func CQP(quality int) RateControl {
	return RateControl{Mode: "cqp", Quality: quality}
}

// Settings is the single structured configuration record sent with
// VerbConfigure, transcribing spec.md §4.4's field list exactly.
type Settings struct {
	WindowTitle      string      `json:"window_title"`
	WindowClass      string      `json:"window_class"`
	WindowProcess    string      `json:"window_process"`
	InputResolution  Resolution  `json:"input_resolution"`
	OutputResolution Resolution  `json:"output_resolution"`
	Framerate        Framerate   `json:"framerate"`
	RateControl      RateControl `json:"rate_control"`
	AudioSource      string      `json:"audio_source"`
	OutputPath       string      `json:"output_path"`
}

// Framerate is expressed as a rational number/denominator pair, the way
// the engine's settings record carries it.
type Framerate struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// request is the wire envelope sent to the child.
type request struct {
	Verb    Verb            `json:"verb"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response is the wire envelope the child replies with.
type response struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// codec frames requests onto w and reads responses from r, one JSON
// object per line.
type codec struct {
	w io.Writer
	r *bufio.Reader
}

func newCodec(w io.Writer, r io.Reader) *codec {
	return &codec{w: w, r: bufio.NewReader(r)}
}

func (c *codec) call(verb Verb, payload interface{}, out interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", verb, err)
		}
		raw = encoded
	}

	req, err := json.Marshal(request{Verb: verb, Payload: raw})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", verb, err)
	}
	req = append(req, '\n')

	if _, err := c.w.Write(req); err != nil {
		return fmt.Errorf("write %s request: %w", verb, err)
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read %s response: %w", verb, err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decode %s response: %w", verb, err)
	}
	if !resp.OK {
		return &EngineError{Verb: verb, Message: resp.Error}
	}
	if out != nil && len(resp.Payload) > 0 {
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("decode %s response payload: %w", verb, err)
		}
	}
	return nil
}

// EngineError is returned when the child rejects a request (spec.md
// §4.4: "Fails if the child rejects the config"). Typed rather than a
// bare fmt.Errorf so callers like the Recording Task can distinguish an
// engine-level rejection (§7 item 3) from a transport failure.
type EngineError struct {
	Verb    Verb
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("recorder engine rejected %s: %s", e.Verb, e.Message)
}
