package event

import (
	"approval-notify/errors"
	"encoding/json"
	"fmt"
	"time"
)

const (
	fieldType      = "type"
	fieldTimestamp = "timestamp"
)

// Encode renders the wire envelope of a message. The timestamp is set from
// now unless the message already carries an RFC 3339 string.
func Encode(m Message, now time.Time) ([]byte, error) {
	if m == nil || m.Type() == "" {
		return nil, fmt.Errorf("%w: message has no type", errors.ErrEncode)
	}
	fields, err := toFields(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrEncode, err)
	}

	kind, err := json.Marshal(string(m.Type()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrEncode, err)
	}
	fields[fieldType] = kind

	if !validTimestamp(fields[fieldTimestamp]) {
		ts, err := json.Marshal(FormatTimestamp(now))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrEncode, err)
		}
		fields[fieldTimestamp] = ts
	}

	bytes, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrEncode, err)
	}
	return bytes, nil
}

// validTimestamp reports whether raw is a JSON string holding an RFC 3339 time.
func validTimestamp(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, value)
	return err == nil
}

// FormatTimestamp is the ISO-8601 layout used on the wire.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toFields(m Message) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)

	var generic *Generic
	switch g := m.(type) {
	case Generic:
		generic = &g
	case *Generic:
		generic = g
	}
	if generic != nil {
		for k, v := range generic.Fields {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = raw
		}
		return fields, nil
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// UnmarshalJSON reads a free-form message whose kind lives in "type".
func (g *Generic) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	kind, _ := fields[fieldType].(string)
	if kind == "" {
		return fmt.Errorf("%w: message has no type", errors.ErrEncode)
	}
	delete(fields, fieldType)
	g.Kind = Type(kind)
	g.Fields = fields
	return nil
}
