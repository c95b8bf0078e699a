// Package models holds the concrete item kinds composr manages: phrases
// (route handlers), snippets (shared code) and virtual domains (groupings of
// both). Each kind has a constructor, a compiler and a validator that plug
// into manager.Config.
package models

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"maps"

	"github.com/teranos/composr/manager"
)

// Checksum returns raw["md5"] when present, otherwise the hex MD5 of raw's
// JSON encoding. encoding/json writes map keys sorted, so equal maps hash
// equally.
func Checksum(raw manager.Raw) string {
	if sum, ok := raw["md5"].(string); ok && sum != "" {
		return sum
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func clone(raw manager.Raw) manager.Raw {
	out := make(manager.Raw, len(raw)+1)
	maps.Copy(out, raw)
	return out
}

func stringField(raw manager.Raw, key string) string {
	s, _ := raw[key].(string)
	return s
}

// stringList reads a JSON array of strings, skipping non-string entries.
func stringList(raw manager.Raw, key string) []string {
	switch v := raw[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
