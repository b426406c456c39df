package core

import "strconv"

// KeyString renders a decoded JSON identifier as a stable record key.
// Source APIs are inconsistent about identifier types (numeric in one
// response, string in another), and generic decoding turns JSON numbers
// into float64, so numeric identifiers are normalized to their shortest
// exact decimal form.
func KeyString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}
