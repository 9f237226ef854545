package websocket

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"

	"skidoodle/mpd-ws/internal/mpd"
	"skidoodle/mpd-ws/internal/websocket/mocks"
)

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		expect func(m *mocks.MockCommanderMockRecorder)
	}{
		{
			name:   "volume",
			msg:    `{"volume": 42}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.SetVolume(42).Return(nil) },
		},
		{
			name:   "volume out of range is forwarded",
			msg:    `{"volume": 250}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.SetVolume(250).Return(nil) },
		},
		{
			name:   "pause boolean",
			msg:    `{"pause": true}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Pause(1).Return(nil) },
		},
		{
			name:   "resume boolean",
			msg:    `{"pause": false}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Pause(0).Return(nil) },
		},
		{
			name:   "pause numeric",
			msg:    `{"pause": 1}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Pause(1).Return(nil) },
		},
		{
			name:   "resume numeric",
			msg:    `{"pause": 0}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Pause(0).Return(nil) },
		},
		{
			name:   "pause out of range is forwarded",
			msg:    `{"pause": 2}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Pause(2).Return(nil) },
		},
		{
			name:   "next",
			msg:    `{"cmd": "next"}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Next().Return(nil) },
		},
		{
			name:   "previous",
			msg:    `{"cmd": "previous"}`,
			expect: func(m *mocks.MockCommanderMockRecorder) { m.Previous().Return(nil) },
		},
		{
			name: "all fields in order",
			msg:  `{"cmd": "next", "pause": false, "volume": 7}`,
			expect: func(m *mocks.MockCommanderMockRecorder) {
				gomock.InOrder(
					m.SetVolume(7).Return(nil),
					m.Pause(0).Return(nil),
					m.Next().Return(nil),
				)
			},
		},
		{
			name: "command error does not stop later fields",
			msg:  `{"volume": 7, "cmd": "previous"}`,
			expect: func(m *mocks.MockCommanderMockRecorder) {
				m.SetVolume(7).Return(errors.New("broken pipe"))
				m.Previous().Return(nil)
			},
		},
		{name: "unknown cmd", msg: `{"cmd": "shuffle"}`},
		{name: "empty cmd", msg: `{"cmd": ""}`},
		{name: "empty object", msg: `{}`},
		{name: "null", msg: `null`},
		{name: "null fields are absent", msg: `{"volume": null, "pause": null, "cmd": null}`},
		{name: "unknown fields are ignored", msg: `{"repeat": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			cmd := mocks.NewMockCommander(ctrl)
			if tt.expect != nil {
				tt.expect(cmd.EXPECT())
			}

			NewDispatcher(cmd).Dispatch(websocket.TextMessage, []byte(tt.msg))
		})
	}
}

func TestDispatcher_MalformedInputIsDropped(t *testing.T) {
	tests := []struct {
		name    string
		msgType int
		msg     string
		expect  func(m *mocks.MockCommanderMockRecorder)
	}{
		{name: "not json", msgType: websocket.TextMessage, msg: `next please`},
		{name: "array", msgType: websocket.TextMessage, msg: `[1, 2]`},
		{name: "bare string", msgType: websocket.TextMessage, msg: `"next"`},
		{name: "binary frame", msgType: websocket.BinaryMessage, msg: `{"cmd": "next"}`},
		{name: "fractional volume", msgType: websocket.TextMessage, msg: `{"volume": 4.5}`},
		{name: "pause as string", msgType: websocket.TextMessage, msg: `{"pause": "yes"}`},
		{name: "fractional pause", msgType: websocket.TextMessage, msg: `{"pause": 0.5}`},
		{name: "cmd as number", msgType: websocket.TextMessage, msg: `{"cmd": 1}`},
		{
			name:    "volume as string keeps cmd",
			msgType: websocket.TextMessage,
			msg:     `{"volume": "loud", "cmd": "next"}`,
			expect:  func(m *mocks.MockCommanderMockRecorder) { m.Next().Return(nil) },
		},
		{
			name:    "fractional volume keeps cmd",
			msgType: websocket.TextMessage,
			msg:     `{"volume": 4.5, "cmd": "next"}`,
			expect:  func(m *mocks.MockCommanderMockRecorder) { m.Next().Return(nil) },
		},
		{
			name:    "bad pause keeps volume",
			msgType: websocket.TextMessage,
			msg:     `{"volume": 30, "pause": "yes"}`,
			expect:  func(m *mocks.MockCommanderMockRecorder) { m.SetVolume(30).Return(nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook := logtest.NewGlobal()
			defer hook.Reset()

			// Calls without a matching expectation fail the test.
			ctrl := gomock.NewController(t)
			cmd := mocks.NewMockCommander(ctrl)
			if tt.expect != nil {
				tt.expect(cmd.EXPECT())
			}

			NewDispatcher(cmd).Dispatch(tt.msgType, []byte(tt.msg))

			var warned bool
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.WarnLevel {
					warned = true
				}
			}
			if !warned {
				t.Errorf("expected a warning, got %v", hook.AllEntries())
			}
		})
	}
}

func TestDispatcher_WritesThroughSequencer(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{name: "pause true", msg: `{"pause": true}`, want: "noidle\npause 1\nidle\n"},
		{name: "pause out of range", msg: `{"pause": 2}`, want: "noidle\npause 2\nidle\n"},
		{name: "pause negative", msg: `{"pause": -1}`, want: "noidle\npause -1\nidle\n"},
		{name: "bad volume keeps next", msg: `{"volume": 4.5, "cmd": "next"}`, want: "noidle\nnext\nidle\n"},
		{
			name: "volume then pause then cmd",
			msg:  `{"cmd": "previous", "pause": 0, "volume": 20}`,
			want: "noidle\nsetvol 20\nidle\nnoidle\npause 0\nidle\nnoidle\nprevious\nidle\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewDispatcher(mpd.NewSequencer(&buf, false)).Dispatch(websocket.TextMessage, []byte(tt.msg))
			if got := buf.String(); got != tt.want {
				t.Errorf("wrote %q, want %q", got, tt.want)
			}
		})
	}
}
