package openai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedResponse indicates the model reply could not be parsed.
var ErrMalformedResponse = errors.New("malformed model response")

// decodeStrict parses a model reply as JSON into v.
//
// The reply is first parsed as-is. The only fallback is removing a single
// surrounding markdown code fence (```json ... ``` or ``` ... ```) and
// parsing again. No other repair is attempted.
func decodeStrict(reply string, v any) error {
	reply = strings.TrimSpace(reply)
	err := json.Unmarshal([]byte(reply), v)
	if err == nil {
		return nil
	}
	stripped, ok := stripFence(reply)
	if !ok {
		return errors.Join(ErrMalformedResponse, err)
	}
	if err := json.Unmarshal([]byte(stripped), v); err != nil {
		return errors.Join(ErrMalformedResponse, err)
	}
	return nil
}

func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body), true
}
