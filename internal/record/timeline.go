package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimelineEntry is one dated action on a bill.
type TimelineEntry struct {
	At     time.Time
	Action string
}

// Timeline is a bill's actions ordered by time, at most one entry per instant.
//
// Its JSON form is an object keyed by RFC 3339 timestamps, written in time order.
type Timeline []TimelineEntry

// NewTimeline builds a timeline from unordered entries. Actions sharing an instant are
// joined with "; " in input order.
func NewTimeline(entries ...TimelineEntry) Timeline {
	var t Timeline
	for _, e := range entries {
		t = t.Add(e.At, e.Action)
	}
	return t
}

// Add returns t with action inserted at its position.
func (t Timeline) Add(at time.Time, action string) Timeline {
	i := sort.Search(len(t), func(i int) bool { return !t[i].At.Before(at) })
	if i < len(t) && t[i].At.Equal(at) {
		if t[i].Action == "" {
			t[i].Action = action
		} else if action != "" && !containsAction(t[i].Action, action) {
			t[i].Action += "; " + action
		}
		return t
	}
	t = append(t, TimelineEntry{})
	copy(t[i+1:], t[i:])
	t[i] = TimelineEntry{At: at, Action: action}
	return t
}

func containsAction(joined, action string) bool {
	for _, part := range strings.Split(joined, "; ") {
		if part == action {
			return true
		}
	}
	return false
}

// MarshalJSON writes the ordered timestamp-keyed object.
func (t Timeline) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.At.Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Action)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the timestamp-keyed object in any key order.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = nil
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	out := make(Timeline, 0, len(raw))
	for k, v := range raw {
		at, err := time.Parse(time.RFC3339Nano, k)
		if err != nil {
			return fmt.Errorf("timeline key %q: %w", k, err)
		}
		out = out.Add(at, v)
	}
	*t = out
	return nil
}

// Latest returns the most recent entry.
func (t Timeline) Latest() (TimelineEntry, bool) {
	if len(t) == 0 {
		return TimelineEntry{}, false
	}
	return t[len(t)-1], true
}
