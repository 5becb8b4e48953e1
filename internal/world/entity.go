// Package world defines the world-model collaborator the importer reconciles
// against: name-keyed entities of a handful of kinds, and the Store
// capability that finds, creates, updates and removes them.
package world

import (
	"encoding/json"
	"maps"
	"strconv"
)

// Kind identifies an entity type in the world model.
type Kind string

// Entity kinds understood by the importer.
const (
	KindPage      Kind = "page"
	KindCharacter Kind = "character"
	KindAttribute Kind = "attribute"
	KindHandout   Kind = "handout"
	KindGraphic   Kind = "graphic"
	KindPath      Kind = "path"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{KindPage, KindCharacter, KindAttribute, KindHandout, KindGraphic, KindPath}

// Well-known attribute fields.
const (
	FieldName        = "name"
	FieldPageID      = "pageid"
	FieldCharacterID = "characterid"
)

// ParentField returns the attribute that links an entity of kind k to its
// owner, or "" for top-level kinds. Removing the owner removes the child.
func ParentField(k Kind) string {
	switch k {
	case KindGraphic, KindPath:
		return FieldPageID
	case KindAttribute:
		return FieldCharacterID
	default:
		return ""
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Attributes is the free-form field bag of an entity.
type Attributes map[string]any

// Merge returns a new Attributes holding a's fields overlaid with each of
// overrides in order. Neither input is modified.
func Merge(a Attributes, overrides ...Attributes) Attributes {
	out := make(Attributes, len(a))
	maps.Copy(out, a)
	for _, o := range overrides {
		maps.Copy(out, o)
	}
	return out
}

// Entity is a snapshot of one live world-model object.
type Entity struct {
	ID    string
	Kind  Kind
	Attrs Attributes
}

// Name returns the entity's name field, or "" when absent.
func (e *Entity) Name() string {
	return e.String(FieldName)
}

// Parent returns the owning entity's ID, or "" for top-level kinds.
func (e *Entity) Parent() string {
	f := ParentField(e.Kind)
	if f == "" {
		return ""
	}
	return e.String(f)
}

// Get returns the raw value of field, or nil.
func (e *Entity) Get(field string) any {
	return e.Attrs[field]
}

// String returns field formatted as a string.
func (e *Entity) String(field string) string {
	switch v := e.Attrs[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Float returns field as a float64. Values decoded from JSON or YAML may be
// any numeric type; non-numeric values yield (0, false).
func (e *Entity) Float(field string) (float64, bool) {
	switch v := e.Attrs[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Clone returns a deep-enough copy: the attribute map is copied, values are
// shared.
func (e *Entity) Clone() *Entity {
	return &Entity{ID: e.ID, Kind: e.Kind, Attrs: Merge(e.Attrs)}
}
