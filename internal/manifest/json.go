package manifest

import (
	"bytes"
	"encoding/json"
	"math"
)

// object is a loosely typed JSON object. Accessors return zero values when a
// key is missing or holds a value of the wrong JSON type.
type object map[string]json.RawMessage

func asObject(raw json.RawMessage) (object, bool) {
	if kindOf(raw) != '{' {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

func asString(raw json.RawMessage) (string, bool) {
	if kindOf(raw) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return kindOf(raw) == 'n'
}

func kindOf(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func (o object) object(key string) (object, bool) {
	return asObject(o[key])
}

func (o object) array(key string) []json.RawMessage {
	raw := o[key]
	if kindOf(raw) != '[' {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	return arr
}

func (o object) strOK(key string) (string, bool) {
	return asString(o[key])
}

func (o object) str(key string, max int) string {
	s, _ := o.strOK(key)
	return Truncate(s, max)
}

func (o object) numberOK(key string) (float64, bool) {
	raw := o[key]
	switch c := kindOf(raw); {
	case c == '-' || (c >= '0' && c <= '9'):
	default:
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func (o object) number(key string) float64 {
	f, _ := o.numberOK(key)
	return f
}

func (o object) uint32(key string) uint32 {
	f, ok := o.numberOK(key)
	if !ok || f < 0 || f > math.MaxUint32 {
		return 0
	}
	return uint32(f)
}

func (o object) isTrue(key string) bool {
	return string(bytes.TrimSpace(o[key])) == "true"
}
