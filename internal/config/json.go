package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseJSON reads the JSON config file at path into cfg. The file uses the
// same field names as the env tags, lower-cased (standard encoding/json
// matching is case-insensitive on exported fields).
func parseJSON(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading json config file: %w", err)
	}

	if err = json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error decoding json config file: %w", err)
	}

	return nil
}
