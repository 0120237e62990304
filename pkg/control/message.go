package control

import (
	"strings"

	"mercator-hq/wiretap/pkg/traffic"
	"mercator-hq/wiretap/pkg/traffic/override"
)

// MessageType names a control command.
type MessageType string

// Supported message types.
const (
	TypeSetRequestHeaders   MessageType = "SET_REQUEST_HEADERS"
	TypeClearRequestHeaders MessageType = "CLEAR_REQUEST_HEADERS"
	TypeGetOverride         MessageType = "GET_OVERRIDE"
	TypeSetRecording        MessageType = "SET_RECORDING"
	TypeGetRecording        MessageType = "GET_RECORDING"
	TypeGetLogs             MessageType = "GET_LOGS"
	TypeClearLogs           MessageType = "CLEAR_LOGS"
)

// Message is a control command. Only the fields of its type are read.
type Message struct {
	Type MessageType `json:"type"`

	// URL and Headers belong to SET_REQUEST_HEADERS.
	URL     string            `json:"url,omitempty"`
	Headers []override.Header `json:"headers,omitempty"`

	// Enabled belongs to SET_RECORDING.
	Enabled *bool `json:"enabled,omitempty"`
}

// Validate checks that the fields required by the message type are present.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeSetRequestHeaders:
		if strings.TrimSpace(m.URL) == "" {
			return traffic.NewControlError(string(m.Type), "url is required", nil)
		}
		if len(m.Headers) == 0 {
			return traffic.NewControlError(string(m.Type), "at least one header is required", nil)
		}
	case TypeSetRecording:
		if m.Enabled == nil {
			return traffic.NewControlError(string(m.Type), "enabled is required", nil)
		}
	case TypeClearRequestHeaders, TypeGetOverride, TypeGetRecording, TypeGetLogs, TypeClearLogs:
	default:
		return traffic.NewControlError(string(m.Type), "unsupported message type", traffic.ErrUnknownMessage)
	}
	return nil
}

// Response is the reply to a Message.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Logs is set for GET_LOGS, newest first.
	Logs []*traffic.RequestRecord `json:"logs,omitzero"`

	// Recording is set for SET_RECORDING and GET_RECORDING.
	Recording *bool `json:"recording,omitempty"`

	// Override is the active rule for GET_OVERRIDE, nil when none is set.
	Override *override.Rule `json:"override,omitempty"`
}

func failure(err error) *Response {
	return &Response{Success: false, Error: err.Error()}
}
