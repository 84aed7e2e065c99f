package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCall       = "function_call"
	ItemTypeFunctionCallOutput = "function_call_output"

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	EventOutputTextDelta = "response.output_text.delta"
	EventOutputItemDone  = "response.output_item.done"

	partOutputText = "output_text"
	partInputText  = "input_text"
)

// ContentPart is one block of message content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Content accepts either a plain string or a list of content parts.
type Content []ContentPart

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Content{{Type: partInputText, Text: s}}
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or a list of parts: %w", err)
	}
	*c = parts
	return nil
}

func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// Item is a conversation entry in the responses format: a role message, a function
// call requested by the model or the output of that call.
type Item struct {
	Type      string  `json:"type,omitempty"`
	ID        string  `json:"id,omitempty"`
	Role      string  `json:"role,omitempty"`
	Content   Content `json:"content,omitempty"`
	CallID    string  `json:"call_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Arguments string  `json:"arguments,omitempty"`
	Output    string  `json:"output,omitempty"`
}

// Kind returns the item type, treating an untyped item with a role as a message.
func (i Item) Kind() string {
	if i.Type == "" && i.Role != "" {
		return ItemTypeMessage
	}
	return i.Type
}

type Event struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id,omitempty"`
	Delta  string `json:"delta,omitempty"`
	Item   *Item  `json:"item,omitempty"`
}

func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func UserMessage(text string) Item {
	return Item{Type: ItemTypeMessage, Role: RoleUser, Content: Content{{Type: partInputText, Text: text}}}
}

func assistantMessage(id, text string) Item {
	return Item{
		Type:    ItemTypeMessage,
		ID:      id,
		Role:    RoleAssistant,
		Content: Content{{Type: partOutputText, Text: text}},
	}
}

func functionCall(callID, name, arguments string) Item {
	return Item{
		Type:      ItemTypeFunctionCall,
		ID:        NewID("fc"),
		CallID:    callID,
		Name:      name,
		Arguments: arguments,
	}
}

func functionCallOutput(callID, output string) Item {
	return Item{
		Type:   ItemTypeFunctionCallOutput,
		ID:     NewID("fco"),
		CallID: callID,
		Output: output,
	}
}
