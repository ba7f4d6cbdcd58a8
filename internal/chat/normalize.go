package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"OpenCodeWeb/internal/session"

	"github.com/tidwall/gjson"
)

const noResponseContent = "No response content"

// NormalizeMessages maps a message list payload, bare array or {data: [...]},
// into session messages in server order.
func NormalizeMessages(payload []byte, now time.Time) []session.Message {
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsArray() {
		parsed = parsed.Get("data")
	}
	if !parsed.IsArray() {
		return []session.Message{}
	}

	entries := parsed.Array()
	messages := make([]session.Message, 0, len(entries))
	for i, entry := range entries {
		messages = append(messages, NormalizeMessage(entry, i, now))
	}
	return messages
}

// NormalizeMessage reads each field from the entry itself first and falls
// back to the nested info object.
func NormalizeMessage(entry gjson.Result, index int, now time.Time) session.Message {
	id := field(entry, "id").String()
	if id == "" {
		id = fmt.Sprintf("msg-%d", index)
	}

	kind := field(entry, "type")
	if !present(kind) {
		kind = field(entry, "role")
	}
	role := session.RoleAssistant
	if kind.String() == string(session.RoleUser) {
		role = session.RoleUser
	}

	content := field(entry, "content").String()
	if content == "" {
		content = textParts(entry)
	}

	ts := field(entry, "timestamp")
	if !present(ts) {
		ts = entry.Get("info.time.created")
	}

	return session.Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: parseTimestamp(ts, now),
		Status:    session.StatusConfirmed,
	}
}

// assistantContent extracts the reply text from a send-message payload
func assistantContent(payload []byte) string {
	entry := gjson.ParseBytes(payload)
	if content := field(entry, "content").String(); content != "" {
		return content
	}
	if content := textParts(entry); content != "" {
		return content
	}
	return noResponseContent
}

func field(entry gjson.Result, name string) gjson.Result {
	if v := entry.Get(name); present(v) {
		return v
	}
	return entry.Get("info." + name)
}

// present mirrors a truthiness check: missing, null, false, 0 and "" are absent
func present(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	}
	return v.Exists()
}

func textParts(entry gjson.Result) string {
	var texts []string
	for _, part := range entry.Get("parts").Array() {
		if part.Get("type").String() == "text" {
			if text := part.Get("text").String(); text != "" {
				texts = append(texts, text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

// parseTimestamp accepts unix milliseconds or an RFC 3339 string
func parseTimestamp(v gjson.Result, now time.Time) time.Time {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int())
	case gjson.String:
		if ms, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		if t, err := time.Parse(time.RFC3339Nano, v.Str); err == nil {
			return t
		}
	}
	return now
}
