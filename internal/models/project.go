// internal/models/project.go
package models

import "strconv"

// Project is the record shape handed over by the CRUD layer: an opaque bag of
// named fields. The ranking core only ever reads from it.
type Project map[string]interface{}

// Field returns the named field rendered as a string, or "" when the field is
// absent or not representable as text. Numeric IDs arriving through JSON are
// float64, so those are formatted without a fraction.
func (p Project) Field(name string) string {
	v, ok := p[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func (p Project) ID() string          { return p.Field("id") }
func (p Project) Name() string        { return p.Field("name") }
func (p Project) Description() string { return p.Field("description") }
func (p Project) City() string        { return p.Field("city") }
func (p Project) Location() string    { return p.Field("location") }
func (p Project) Status() string      { return p.Field("status") }
