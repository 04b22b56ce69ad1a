package discord

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/shaharia-lab/audicord/internal/media"
)

const (
	protocolVersion = 1

	// maxFieldRunes is the longest details/state string Discord accepts
	maxFieldRunes = 128

	cmdSetActivity = "SET_ACTIVITY"
	evtReady       = "READY"
	evtError       = "ERROR"
)

type handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

type activityPayload struct {
	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
}

type setActivityArgs struct {
	PID int `json:"pid"`
	// Activity is encoded as null to clear the presence
	Activity *activityPayload `json:"activity"`
}

type command struct {
	Cmd   string          `json:"cmd"`
	Args  setActivityArgs `json:"args"`
	Nonce string          `json:"nonce"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func toPayload(a media.Activity) *activityPayload {
	return &activityPayload{
		Details: truncate(a.Details, maxFieldRunes),
		State:   truncate(a.State, maxFieldRunes),
	}
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
