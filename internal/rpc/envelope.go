package rpc

import "encoding/json"

// Message tags exchanged on the NDJSON stream.
const (
	tagRequest   = "Request"
	tagPing      = "Ping"
	tagPong      = "Pong"
	tagEof       = "Eof"
	tagAck       = "Ack"
	tagInterrupt = "Interrupt"
	tagExit      = "Exit"
	tagDefect    = "Defect"

	exitSuccess = "Success"
	exitFailure = "Failure"

	causeFail = "Fail"
	causeDie  = "Die"
)

// clientMessage is one line sent by the caller.
type clientMessage struct {
	Tag       string          `json:"_tag"`
	ID        string          `json:"id,omitempty"`
	Procedure string          `json:"tag,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type pongMessage struct {
	Tag string `json:"_tag"`
}

type defectMessage struct {
	Tag    string `json:"_tag"`
	Defect string `json:"defect"`
}

type exitMessage struct {
	Tag       string `json:"_tag"`
	RequestID string `json:"requestId"`
	Exit      exit   `json:"exit"`
}

type exit struct {
	Tag   string `json:"_tag"`
	Value any    `json:"value,omitempty"`
	Cause *cause `json:"cause,omitempty"`
}

type cause struct {
	Tag    string `json:"_tag"`
	Error  any    `json:"error,omitempty"`
	Defect string `json:"defect,omitempty"`
}

func successExit(id string, value any) exitMessage {
	return exitMessage{Tag: tagExit, RequestID: id, Exit: exit{Tag: exitSuccess, Value: value}}
}

func failExit(id string, err any) exitMessage {
	return exitMessage{Tag: tagExit, RequestID: id, Exit: exit{Tag: exitFailure, Cause: &cause{Tag: causeFail, Error: err}}}
}

func dieExit(id, defect string) exitMessage {
	return exitMessage{Tag: tagExit, RequestID: id, Exit: exit{Tag: exitFailure, Cause: &cause{Tag: causeDie, Defect: defect}}}
}

// Typed failures a procedure can return to the caller.

type userNotFound struct {
	Tag     string `json:"_tag"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type duplicateEmail struct {
	Tag   string `json:"_tag"`
	Email string `json:"email"`
}

type validationFailure struct {
	Tag     string `json:"_tag"`
	Message string `json:"message"`
}

type provisioningFailure struct {
	Tag     string `json:"_tag"`
	Message string `json:"message"`
}

// failure carries an expected procedure error. Anything else a procedure
// returns is reported as a defect.
type failure struct {
	payload any
}

func (f *failure) Error() string {
	b, _ := json.Marshal(f.payload)
	return "rpc failure: " + string(b)
}
