package pydec

import "strconv"

// Obj accessor methods used by the JSON renderer to build each node's
// "value" payload, adapted from og-rek's typeconv.go AsInt64/AsBytes
// helpers (there, used to convert a decoded Obj back into a Go value for
// callers; here, used to convert one into a JSON-friendly scalar).

// ScalarValue returns the JSON-safe scalar form of a non-container Obj:
// a bool, int64, float64, or string. The second return is false for
// containers, Func, What, and Split, which render_json.go builds
// structured nodes for instead.
func (o *Obj) ScalarValue() (interface{}, bool) {
	switch o.Kind {
	case KindNone:
		return nil, true
	case KindBool:
		return o.Bool, true
	case KindInt:
		return o.Int, true
	case KindFloat:
		return o.Float, true
	case KindStr:
		return string(o.Str), true
	default:
		return nil, false
	}
}

// AsInt64 extracts an int64 from an Int or Bool Obj, for callers that need
// a plain integer rather than the interface{} ScalarValue returns.
func (o *Obj) AsInt64() (int64, bool) {
	switch o.Kind {
	case KindInt:
		return o.Int, true
	case KindBool:
		if o.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsBytes extracts the raw Str payload from a Str Obj.
func (o *Obj) AsBytes() ([]byte, bool) {
	if o.Kind != KindStr {
		return nil, false
	}
	return o.Str, true
}

// memoKey formats a memo slot as a JSON object key (JSON object keys must
// be strings; memo slots are int64).
func memoKey(slot int64) string {
	return strconv.FormatInt(slot, 10)
}
