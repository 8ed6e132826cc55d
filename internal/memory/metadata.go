package memory

import (
	"encoding/json"
	"strconv"
	"time"
)

// Metadata carries the structured fields stored alongside a memory.
// Unknown keys survive round trips through Extra.
type Metadata struct {
	// Content mirrors the memory text. It is force-overwritten with
	// the source content at creation time.
	Content string

	// Context describes where the memory came from.
	Context string

	// Importance ranks the memory from 1 (trivial) to 10 (critical).
	// Zero means unranked.
	Importance int

	// Tags label the memory for filtered retrieval.
	Tags []string

	// Timestamp is the event time in RFC 3339. CreatedAt is the
	// ingestion time; date filters fall back to it when Timestamp is
	// absent.
	Timestamp string
	CreatedAt string

	// Client identifies the submitting application.
	Client string

	// SessionID groups memories created in one session.
	SessionID string

	// Extra holds fields this package does not interpret.
	Extra map[string]string
}

// Well-known metadata keys.
const (
	keyContent    = "content"
	keyContext    = "context"
	keyImportance = "importance"
	keyTags       = "tags"
	keyTimestamp  = "timestamp"
	keyCreatedAt  = "created_at"
	keyClient     = "client"
	keySessionID  = "session_id"
)

// ToMap flattens metadata into the string map the index stores. Tags
// are JSON encoded so they survive the round trip.
func (m *Metadata) ToMap() map[string]string {
	out := make(map[string]string, len(m.Extra)+8)
	for k, v := range m.Extra {
		out[k] = v
	}

	out[keyContent] = m.Content
	if m.Context != "" {
		out[keyContext] = m.Context
	}
	if m.Importance != 0 {
		out[keyImportance] = strconv.Itoa(m.Importance)
	}
	if len(m.Tags) > 0 {
		if encoded, err := json.Marshal(m.Tags); err == nil {
			out[keyTags] = string(encoded)
		}
	}
	if m.Timestamp != "" {
		out[keyTimestamp] = m.Timestamp
	}
	if m.CreatedAt != "" {
		out[keyCreatedAt] = m.CreatedAt
	}
	if m.Client != "" {
		out[keyClient] = m.Client
	}
	if m.SessionID != "" {
		out[keySessionID] = m.SessionID
	}
	return out
}

// MetadataFromMap rebuilds metadata from a stored string map.
// Malformed fields degrade to their zero values rather than failing a
// read path.
func MetadataFromMap(raw map[string]string) Metadata {
	var m Metadata
	extra := make(map[string]string)

	for k, v := range raw {
		switch k {
		case keyContent:
			m.Content = v
		case keyContext:
			m.Context = v
		case keyImportance:
			if n, err := strconv.Atoi(v); err == nil {
				m.Importance = n
			}
		case keyTags:
			var tags []string
			if err := json.Unmarshal([]byte(v), &tags); err == nil {
				m.Tags = tags
			}
		case keyTimestamp:
			m.Timestamp = v
		case keyCreatedAt:
			m.CreatedAt = v
		case keyClient:
			m.Client = v
		case keySessionID:
			m.SessionID = v
		default:
			extra[k] = v
		}
	}

	if len(extra) > 0 {
		m.Extra = extra
	}
	return m
}

// eventTime returns the memory's timestamp, falling back to the
// creation time. The second return is false when neither parses.
func (m *Metadata) eventTime() (time.Time, bool) {
	for _, raw := range []string{m.Timestamp, m.CreatedAt} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
