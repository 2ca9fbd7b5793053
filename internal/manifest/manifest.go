// Package manifest decodes package.json dependency manifests.
package manifest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Manifest is the subset of package.json the dashboard tracks.
type Manifest struct {
	Dependencies    map[string]string
	DevDependencies map[string]string
	NodeVersion     *string
	YarnVersion     *string
	PackageManager  *string
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Engines         json.RawMessage   `json:"engines"`
	PackageManager  json.RawMessage   `json:"packageManager"`
	Volta           json.RawMessage   `json:"volta"`
}

// Parse decodes a package.json document. Dependency maps are never nil.
// Toolchain versions come from "engines", then "volta"; a "packageManager"
// value such as "yarn@3.6.0" also yields the yarn version.
func Parse(data []byte) (*Manifest, error) {
	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	engines := toolVersions(raw.Engines)
	volta := toolVersions(raw.Volta)
	m := &Manifest{
		Dependencies:    nonNil(raw.Dependencies),
		DevDependencies: nonNil(raw.DevDependencies),
		NodeVersion:     firstOf(engines["node"], volta["node"]),
		YarnVersion:     firstOf(engines["yarn"], volta["yarn"]),
	}
	var pm string
	if json.Unmarshal(raw.PackageManager, &pm) == nil && pm != "" {
		m.PackageManager = &pm
		if name, ver, ok := strings.Cut(pm, "@"); ok && name == "yarn" && m.YarnVersion == nil {
			// Corepack appends an integrity hash: "yarn@3.6.0+sha256.abc".
			ver, _, _ = strings.Cut(ver, "+")
			m.YarnVersion = &ver
		}
	}
	return m, nil
}

// toolVersions reads an object of tool name to version. Other shapes, such
// as the legacy array form of "engines", and non-string values are ignored.
func toolVersions(data json.RawMessage) map[string]string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for name, value := range fields {
		var v string
		if json.Unmarshal(value, &v) == nil {
			out[name] = v
		}
	}
	return out
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func firstOf(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}
