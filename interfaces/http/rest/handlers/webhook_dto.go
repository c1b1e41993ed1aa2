package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"gnome-garden/application/fulfillment"
)

// WebhookRequest is the conversation platform's webhook payload
type WebhookRequest struct {
	Handler HandlerDTO `json:"handler" validate:"required"`
	Intent  IntentDTO  `json:"intent"`
	Scene   SceneDTO   `json:"scene"`
	Session SessionDTO `json:"session"`
	User    UserDTO    `json:"user"`
	Device  DeviceDTO  `json:"device"`
}

type HandlerDTO struct {
	Name string `json:"name" validate:"required,max=100"`
}

type IntentDTO struct {
	Name   string                    `json:"name,omitempty"`
	Params map[string]IntentParamDTO `json:"params,omitempty"`
	Query  string                    `json:"query,omitempty"`
}

// IntentParamDTO holds one resolved parameter. Resolved may be a string, a
// number or a list of either.
type IntentParamDTO struct {
	Original string          `json:"original"`
	Resolved json.RawMessage `json:"resolved"`
}

type SceneDTO struct {
	Name string        `json:"name,omitempty"`
	Next *NextSceneDTO `json:"next,omitempty"`
}

type NextSceneDTO struct {
	Name string `json:"name"`
}

type SessionDTO struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params"`
}

type UserDTO struct {
	Params map[string]any `json:"params"`
}

type DeviceDTO struct {
	Capabilities []string `json:"capabilities,omitempty"`
}

// WebhookResponse is what the platform expects back
type WebhookResponse struct {
	Session  SessionDTO   `json:"session"`
	User     UserDTO      `json:"user"`
	Prompt   *PromptDTO   `json:"prompt,omitempty"`
	Scene    *SceneDTO    `json:"scene,omitempty"`
	Expected *ExpectedDTO `json:"expected,omitempty"`
}

type PromptDTO struct {
	Override    bool       `json:"override"`
	FirstSimple *SimpleDTO `json:"firstSimple,omitempty"`
	LastSimple  *SimpleDTO `json:"lastSimple,omitempty"`
	Canvas      *CanvasDTO `json:"canvas,omitempty"`
}

type SimpleDTO struct {
	Speech string `json:"speech,omitempty"`
	Text   string `json:"text,omitempty"`
}

type CanvasDTO struct {
	URL         string `json:"url,omitempty"`
	Data        []any  `json:"data"`
	SuppressMic bool   `json:"suppressMic"`
}

type ExpectedDTO struct {
	Speech []string `json:"speech"`
}

// resolvedValues flattens a resolved parameter into strings.
func resolvedValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var out []string
	var add func(any)
	add = func(x any) {
		switch t := x.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(t))
		case []any:
			for _, e := range t {
				add(e)
			}
		}
	}
	add(v)
	return out
}

// toTurn converts the payload into a turn for the given ids.
func (req *WebhookRequest) toTurn(userID, sessionID string) fulfillment.Turn {
	params := make(map[string]fulfillment.Param, len(req.Intent.Params))
	for name, p := range req.Intent.Params {
		params[name] = fulfillment.Param{Original: p.Original, Values: resolvedValues(p.Resolved)}
	}
	return fulfillment.Turn{
		Handler:      req.Handler.Name,
		Scene:        req.Scene.Name,
		UserID:       userID,
		SessionID:    sessionID,
		Intent:       req.Intent.Name,
		Query:        req.Intent.Query,
		Params:       params,
		Capabilities: req.Device.Capabilities,
	}
}

// mergeSSML joins several <speak> documents into one.
func mergeSSML(docs []string) string {
	if len(docs) == 1 {
		return docs[0]
	}
	var b strings.Builder
	b.WriteString("<speak>")
	for _, d := range docs {
		d = strings.TrimPrefix(d, "<speak>")
		d = strings.TrimSuffix(d, "</speak>")
		b.WriteString(d)
	}
	b.WriteString("</speak>")
	return b.String()
}

// promptOf maps a reply onto the platform's prompt. The first spoken line is
// the first simple prompt; any later lines are merged into the last one.
func promptOf(reply *fulfillment.Reply) *PromptDTO {
	p := &PromptDTO{}
	if len(reply.Speech) > 0 {
		p.FirstSimple = &SimpleDTO{Speech: reply.Speech[0], Text: reply.Text}
		if len(reply.Speech) > 1 {
			p.LastSimple = &SimpleDTO{Speech: mergeSSML(reply.Speech[1:])}
		}
	}
	if cmd := reply.Canvas; cmd != nil {
		p.Canvas = &CanvasDTO{
			URL:         cmd.URL,
			Data:        []any{cmd},
			SuppressMic: cmd.SuppressMic,
		}
	}
	if p.FirstSimple == nil && p.Canvas == nil {
		return nil
	}
	return p
}
