package ragapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuestionRequest is the body of /stream and /ask
type QuestionRequest struct {
	Question string `json:"question"`
}

// AskResponse is the structured answer from /ask
type AskResponse struct {
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
}

// UploadResponse is the body returned by /upload.
// Message is set on success, Error on failure. Fields that are not
// strings keep their JSON text, so "chunks":12 reads as "12".
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Chunks   string `json:"chunks"`
	Error    string `json:"error"`
}

// FileDetail is one entry of /files/details
type FileDetail struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// StatusError is returned when the service answers with a non-2xx status
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.Code, e.Body)
}

// ParseAskResponse decodes an /ask body. The sources field is optional:
// when it is missing or not an array of strings it defaults to empty.
func ParseAskResponse(body []byte) (AskResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return AskResponse{Sources: []string{}}, fmt.Errorf("failed to parse response: %w", err)
	}

	var resp AskResponse
	if v, ok := raw["question"]; ok {
		_ = json.Unmarshal(v, &resp.Question)
	}
	if v, ok := raw["answer"]; ok {
		_ = json.Unmarshal(v, &resp.Answer)
	}
	if v, ok := raw["sources"]; ok {
		if err := json.Unmarshal(v, &resp.Sources); err != nil {
			resp.Sources = nil
		}
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	return resp, nil
}

// ParseUploadResponse decodes an /upload body field by field.
// Only a body that is not a JSON object (or null) is an error; fields of an
// unexpected type never fail the decode. A message or error of null, false,
// 0 or "" reads as absent.
func ParseUploadResponse(body []byte) (UploadResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return UploadResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return UploadResponse{
		Message:  flagText(raw["message"]),
		Filename: fieldText(raw["filename"]),
		Chunks:   fieldText(raw["chunks"]),
		Error:    flagText(raw["error"]),
	}, nil
}

func fieldText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var b bytes.Buffer
	if err := json.Compact(&b, v); err != nil {
		return ""
	}
	if text := b.String(); text != "null" {
		return text
	}
	return ""
}

func flagText(v json.RawMessage) string {
	switch text := fieldText(v); text {
	case "false", "0":
		return ""
	default:
		return text
	}
}
