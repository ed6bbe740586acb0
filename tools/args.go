package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Sanitize turns the model's untrusted argument text into a fresh record for
// tool. Only properties declared in the tool's schema are copied, the result
// is validated against the schema, and ActorParam is then set to actorID.
// The raw text is never trusted for ActorParam, whatever it contains.
func Sanitize(tool Tool, raw string, actorID int64) (Args, error) {
	proposed := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &proposed); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, tool.Name, err)
		}
	}

	fresh := make(map[string]any, len(proposed)+1)
	if tool.Schema != nil {
		for key, value := range proposed {
			if key == tool.ActorParam {
				continue
			}
			if _, declared := tool.Schema.Properties[key]; !declared {
				continue
			}
			fresh[key] = value
		}

		if err := tool.Schema.VisitJSON(fresh); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, tool.Name, err)
		}
	}

	if tool.ActorParam != "" {
		fresh[tool.ActorParam] = actorID
	}
	return Args(fresh), nil
}

// Decode copies sanitized arguments into a typed struct using its json tags.
func Decode(args Args, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(args)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
