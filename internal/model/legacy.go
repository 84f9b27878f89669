package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Legacy option encoding: older questionnaire exports stored a
// question's options as a JSON array of "label:value" strings. This
// adapter is the only place that understands that form; everything else
// works with the explicit Option pair.

// ParseLegacyOption splits one "label:value" entry. The last colon is
// the separator so labels may themselves contain colons. An entry with
// no colon is treated as a label with an empty value.
func ParseLegacyOption(encoded string) (label, value string) {
	idx := strings.LastIndex(encoded, ":")
	if idx < 0 {
		return strings.TrimSpace(encoded), ""
	}
	return strings.TrimSpace(encoded[:idx]), strings.TrimSpace(encoded[idx+1:])
}

// EncodeLegacyOption renders an option back into the legacy form
func EncodeLegacyOption(o Option) string {
	return o.Label + ":" + o.Value
}

// DecodeLegacyOptions parses a legacy options payload (a JSON array of
// "label:value" strings) into Option pairs ordered 1..N. The returned
// options carry no ids; they are drafts for the caller to persist.
func DecodeLegacyOptions(payload string) ([]Option, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	var encoded []string
	if err := json.Unmarshal([]byte(payload), &encoded); err != nil {
		return nil, fmt.Errorf("decode legacy options: %w", err)
	}
	opts := make([]Option, 0, len(encoded))
	for _, e := range encoded {
		label, value := ParseLegacyOption(e)
		if label == "" {
			continue
		}
		opts = append(opts, Option{
			Label: label,
			Value: value,
		})
	}
	for i := range opts {
		opts[i].OrderIndex = i + 1
	}
	return opts, nil
}
