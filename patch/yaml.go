package patch

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAMLDocument accepts a patch document authored as YAML (convenient
// for a human editing a local fixture by hand) and parses it exactly as
// ParseDocument would: the wire format stays JSON-only per this package's
// contract, so a YAML patch is converted to its JSON-equivalent tree before
// any schema or structural check runs.
func ParseYAMLDocument(raw []byte) (*Document, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	asJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return ParseDocument(asJSON)
}
