package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mocks/commander_mock.go -package=mocks skidoodle/mpd-ws/internal/websocket Commander

// Commander is the set of daemon commands a client may trigger.
type Commander interface {
	Next() error
	Previous() error
	Pause(mode int) error
	SetVolume(volume int) error
}

const (
	cmdNext     = "next"
	cmdPrevious = "previous"
)

// Request field names. Every field is optional and acted on independently.
const (
	fieldVolume = "volume"
	fieldPause  = "pause"
	fieldCmd    = "cmd"
)

// PauseArg is the argument of a pause request. JSON booleans map to 1 and 0;
// integers are kept as sent and left for the daemon to accept or refuse.
type PauseArg int

// UnmarshalJSON implements json.Unmarshaler.
func (p *PauseArg) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*p = 0
		if b {
			*p = 1
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pause must be a boolean or an integer, got %s", data)
	}
	*p = PauseArg(n)
	return nil
}

// Dispatcher translates client requests into daemon commands.
type Dispatcher struct {
	cmd Commander
}

// NewDispatcher creates a Dispatcher issuing commands through cmd.
func NewDispatcher(cmd Commander) *Dispatcher {
	return &Dispatcher{cmd: cmd}
}

// Dispatch handles one websocket message. A message that is not a JSON object
// is logged and dropped. A field with the wrong type is logged and skipped
// without affecting the others.
func (d *Dispatcher) Dispatch(msgType int, data []byte) {
	if msgType != websocket.TextMessage {
		log.WithField("type", msgType).Warn("ignoring non-text client message")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		log.WithError(err).WithField("message", string(data)).Warn("ignoring malformed client message")
		return
	}

	var volume int
	if decodeField(fields, fieldVolume, &volume) {
		d.run("setvol", func() error { return d.cmd.SetVolume(volume) })
	}
	var pause PauseArg
	if decodeField(fields, fieldPause, &pause) {
		d.run("pause", func() error { return d.cmd.Pause(int(pause)) })
	}
	var cmd string
	if !decodeField(fields, fieldCmd, &cmd) {
		return
	}
	switch cmd {
	case cmdNext:
		d.run(cmdNext, d.cmd.Next)
	case cmdPrevious:
		d.run(cmdPrevious, d.cmd.Previous)
	case "":
	default:
		log.WithField("cmd", cmd).Debug("ignoring unknown client command")
	}
}

// decodeField reports whether name is present, non-null and decodes into v.
func decodeField(fields map[string]json.RawMessage, name string, v any) bool {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.WithError(err).WithFields(log.Fields{"field": name, "value": string(raw)}).Warn("ignoring malformed request field")
		return false
	}
	return true
}

func (d *Dispatcher) run(name string, fn func() error) {
	if err := fn(); err != nil {
		log.WithError(err).WithField("cmd", name).Error("failed to send command to mpd")
	}
}
