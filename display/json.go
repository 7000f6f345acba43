package display

import (
	"encoding/json"

	"github.com/propscout/propscout/errors"
)

// MarshalJSON is compact for agent callers and indented for people.
func MarshalJSON(v interface{}) ([]byte, error) {
	if IsAgentCaller() {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

func toGeneric(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal")
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "failed to convert")
	}
	return out, nil
}
