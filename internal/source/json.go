package source

import (
	"encoding/json"
	"fmt"
)

// jsonList returns a decoder for responses shaped like {"<key>": [...]}.
// A response without the key has no items.
func jsonList(key string) func(body string) ([]json.RawMessage, error) {
	return func(body string) ([]json.RawMessage, error) {
		var resp map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		raw, ok := resp[key]
		if !ok || string(raw) == "null" {
			return nil, nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return items, nil
	}
}
