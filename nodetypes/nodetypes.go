// Package nodetypes provides ready-made executor.ExecutorFunc registrations
// for LLM-backed node types. A node type is a string key into the registry,
// not a subclass; these functions install provider-backed behavior the same
// way a host application installs its own.
//
// Every node type in this package reads a "prompt" input port and writes a
// "completion" output port, with per-node overrides (model name and system
// prompt for every type; max tokens for the Anthropic type only) read from
// Node.Config so a single registered executor serves any number of nodes of
// that type.
package nodetypes

import "errors"

// ErrEmptyPrompt is returned when a node's "prompt" input is missing or empty.
var ErrEmptyPrompt = errors.New("nodetypes: \"prompt\" input is required and must be a non-empty string")

func promptOf(inputs map[string]any) (string, error) {
	v, ok := inputs["prompt"]
	if !ok {
		return "", ErrEmptyPrompt
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ErrEmptyPrompt
	}
	return s, nil
}

func configString(cfg map[string]any, key, fallback string) string {
	if cfg == nil {
		return fallback
	}
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func configInt(cfg map[string]any, key string, fallback int64) int64 {
	if cfg == nil {
		return fallback
	}
	switch v := cfg[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return fallback
}
