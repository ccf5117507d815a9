package models

import "time"

// Everyone is the wildcard grantee for general access. At most one
// permission record per entity may carry it.
const Everyone = "*"

// Capabilities is the four-flag capability set stored per (entity, grantee).
type Capabilities struct {
	Read    bool `json:"read"`
	Comment bool `json:"comment"`
	Share   bool `json:"share"`
	Write   bool `json:"write"`
}

// FullCapabilities returns all four flags set.
func FullCapabilities() Capabilities {
	return Capabilities{Read: true, Comment: true, Share: true, Write: true}
}

// CapabilityUpdate is a partial capability set: nil fields are not
// touched by an update, present fields overwrite. This replaces the
// original dict-merge semantics with an explicit optional-field merge.
type CapabilityUpdate struct {
	Read    *bool `json:"read,omitempty"`
	Comment *bool `json:"comment,omitempty"`
	Share   *bool `json:"share,omitempty"`
	Write   *bool `json:"write,omitempty"`
}

// Apply merges the update onto existing capabilities: present fields
// overwrite, absent fields keep the existing value.
func (u CapabilityUpdate) Apply(c Capabilities) Capabilities {
	if u.Read != nil {
		c.Read = *u.Read
	}
	if u.Comment != nil {
		c.Comment = *u.Comment
	}
	if u.Share != nil {
		c.Share = *u.Share
	}
	if u.Write != nil {
		c.Write = *u.Write
	}
	return c
}

// Full returns an update setting all four flags.
func Full() CapabilityUpdate {
	t := true
	return CapabilityUpdate{Read: &t, Comment: &t, Share: &t, Write: &t}
}

// Flags returns an update with every field present, taken from c.
func Flags(c Capabilities) CapabilityUpdate {
	return CapabilityUpdate{Read: &c.Read, Comment: &c.Comment, Share: &c.Share, Write: &c.Write}
}

// Bool is a convenience for building updates in call sites and tests.
func Bool(v bool) *bool { return &v }

// Permission is one stored grant: (entity, grantee) with independent
// capability flags. Grantee is a user id or Everyone.
type Permission struct {
	ID        string    `json:"id" db:"id"`
	EntityID  string    `json:"entity_id" db:"entity_id"`
	Grantee   string    `json:"grantee" db:"grantee"`
	Capabilities
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Access is the {read, write} pair exposed by the public access lookups.
// The stored record also carries comment/share; those stay internal to
// the resolver's effective-capability surface.
type Access struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}
