package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is the provider-agnostic chat message shape used by the
// requester and its callers.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload half of a chat completion call. Endpoint and
// credential belong to the requester, not to the request.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature *float64
}

// Validate checks the invariants that must hold before any network I/O.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return errors.New("model must not be empty")
	}
	if len(r.Messages) == 0 {
		return errors.New("messages must not be empty")
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("temperature %v out of range [0,2]", *r.Temperature)
	}
	return nil
}

// ChatResponse is the upstream response body, kept verbatim. Nothing about
// its schema is enforced beyond being valid JSON.
type ChatResponse []byte

func (r ChatResponse) Valid() bool {
	return len(r) > 0 && gjson.ValidBytes(r)
}

// Pretty re-indents the document with the given indent string. Every
// array element and object member goes on its own line.
func (r ChatResponse) Pretty(indent string) []byte {
	return pretty.PrettyOptions(r, &pretty.Options{
		Width:  1,
		Prefix: "",
		Indent: indent,
	})
}

// ID returns the upstream completion id, if present.
func (r ChatResponse) ID() string {
	return gjson.GetBytes(r, "id").String()
}

// Model returns the model the upstream reports having used.
func (r ChatResponse) Model() string {
	return gjson.GetBytes(r, "model").String()
}

// Content returns the first choice's message content, or "" when the
// response carries no choices.
func (r ChatResponse) Content() string {
	return gjson.GetBytes(r, "choices.0.message.content").String()
}

func (r ChatResponse) String() string {
	return string(r)
}
