// Package toolmeta defines the descriptive record attached to every tool
// registered with the fabric: identity, origin, capabilities, and the
// bookkeeping fields needed for export/import and health tracking.
package toolmeta

import (
	"encoding/json"
	"fmt"
	"time"
)

// Origin is the closed set of places a tool's implementation can live.
// Immutable for the lifetime of a registration.
type Origin string

const (
	Local    Origin = "local"
	External Origin = "external"
	Remote   Origin = "remote"
)

// ParseOrigin reconstructs an Origin from its wire string, failing
// closed on anything unrecognized per the import validation rule.
func ParseOrigin(s string) (Origin, error) {
	switch Origin(s) {
	case Local, External, Remote:
		return Origin(s), nil
	default:
		return "", fmt.Errorf("unknown origin: %q", s)
	}
}

// Metadata is a value type: one record per registered tool. It carries
// no behavior beyond construction, ID derivation, and serialization.
type Metadata struct {
	ToolID        string                 `json:"tool_id"`
	Name          string                 `json:"name"`
	Version       string                 `json:"version"`
	Origin        Origin                 `json:"origin"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	AccessLevel   string                 `json:"access_level"`
	Owner         string                 `json:"owner"`
	Capabilities  []string               `json:"capabilities"`
	Tags          []string               `json:"tags"`
	Endpoint      string                 `json:"endpoint,omitempty"`
	AuthReference string                 `json:"-"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

// ToolID computes the deterministic `<origin>.<name>.<version>` id.
func ToolID(origin Origin, name, version string) string {
	return fmt.Sprintf("%s.%s.%s", origin, name, version)
}

// New constructs a metadata record with the registry's documented defaults
// applied (category "general", access_level "standard", owner "system").
func New(origin Origin, name, version string) *Metadata {
	now := time.Now()
	m := &Metadata{
		ToolID:      ToolID(origin, name, version),
		Name:        name,
		Version:     version,
		Origin:      origin,
		Category:    "general",
		AccessLevel: "standard",
		Owner:       "system",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return m
}

// Touch bumps UpdatedAt to now. The registry itself does not call it.
func (m *Metadata) Touch() {
	m.UpdatedAt = time.Now()
}

// exportView is the JSON shape used by export/import and by any
// enumeration endpoint. AuthReference is never included: invariant 4
// requires it never appear in exported configuration.
type exportView struct {
	ToolID       string                 `json:"tool_id"`
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Origin       Origin                 `json:"origin"`
	Description  string                 `json:"description"`
	Category     string                 `json:"category"`
	AccessLevel  string                 `json:"access_level"`
	Owner        string                 `json:"owner"`
	Capabilities []string               `json:"capabilities"`
	Tags         []string               `json:"tags"`
	Endpoint     string                 `json:"endpoint,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// MarshalJSON elides AuthReference unconditionally.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(exportView{
		ToolID:       m.ToolID,
		Name:         m.Name,
		Version:      m.Version,
		Origin:       m.Origin,
		Description:  m.Description,
		Category:     m.Category,
		AccessLevel:  m.AccessLevel,
		Owner:        m.Owner,
		Capabilities: m.Capabilities,
		Tags:         m.Tags,
		Endpoint:     m.Endpoint,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Extra:        m.Extra,
	})
}

// UnmarshalJSON reconstructs a Metadata from its exported form, failing
// on an unrecognized origin tag rather than silently defaulting.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var v exportView
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if _, err := ParseOrigin(string(v.Origin)); err != nil {
		return err
	}
	m.ToolID = v.ToolID
	m.Name = v.Name
	m.Version = v.Version
	m.Origin = v.Origin
	m.Description = v.Description
	m.Category = v.Category
	m.AccessLevel = v.AccessLevel
	m.Owner = v.Owner
	m.Capabilities = v.Capabilities
	m.Tags = v.Tags
	m.Endpoint = v.Endpoint
	m.CreatedAt = v.CreatedAt
	m.UpdatedAt = v.UpdatedAt
	m.Extra = v.Extra
	return nil
}

// HasCapability reports whether cap is in the capability set.
func (m *Metadata) HasCapability(cap string) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// HasTag reports whether tag is in the tag set.
func (m *Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
