package tool

import (
	"errors"
	"fmt"
)

// ErrUnknownParameter is returned by a typed accessor when the named
// parameter is absent from the bag.
var ErrUnknownParameter = errors.New("unknown parameter")

// Params provides typed access to an action's invocation arguments.
// It wraps a plain string-keyed map so that handlers never need to do
// their own type assertions on decoded JSON.
type Params struct {
	values map[string]interface{}
}

// NewParams wraps a raw argument map.
func NewParams(values map[string]interface{}) *Params {
	if values == nil {
		values = map[string]interface{}{}
	}
	return &Params{values: values}
}

// Has reports whether name is present and non-nil.
func (p *Params) Has(name string) bool {
	v, ok := p.values[name]
	return ok && v != nil
}

// Raw returns the underlying map, for handlers that need to pass it
// through verbatim (e.g. the external adapter's JSON body projection).
func (p *Params) Raw() map[string]interface{} {
	return p.values
}

func (p *Params) String(name string) (string, error) {
	v, ok := p.values[name]
	if !ok {
		return "", ErrUnknownParameter
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("parameter %q is not a string", name)
}

func (p *Params) StringOr(name, fallback string) string {
	if v, err := p.String(name); err == nil {
		return v
	}
	return fallback
}

func (p *Params) Int(name string) (int, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, ErrUnknownParameter
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %q is not a number", name)
	}
}

func (p *Params) IntOr(name string, fallback int) int {
	if v, err := p.Int(name); err == nil {
		return v
	}
	return fallback
}

func (p *Params) Float(name string) (float64, error) {
	v, ok := p.values[name]
	if !ok {
		return 0, ErrUnknownParameter
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %q is not a number", name)
	}
}

func (p *Params) FloatOr(name string, fallback float64) float64 {
	if v, err := p.Float(name); err == nil {
		return v
	}
	return fallback
}

func (p *Params) Bool(name string) (bool, error) {
	v, ok := p.values[name]
	if !ok {
		return false, ErrUnknownParameter
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("parameter %q is not a boolean", name)
}

func (p *Params) BoolOr(name string, fallback bool) bool {
	if v, err := p.Bool(name); err == nil {
		return v
	}
	return fallback
}

func (p *Params) StringSlice(name string) ([]string, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, ErrUnknownParameter
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %q is not an array", name)
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q contains non-string element at index %d", name, i)
		}
		out[i] = s
	}
	return out, nil
}

func (p *Params) StringSliceOr(name string, fallback []string) []string {
	if v, err := p.StringSlice(name); err == nil {
		return v
	}
	return fallback
}

func (p *Params) Object(name string) (map[string]interface{}, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, ErrUnknownParameter
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %q is not an object", name)
	}
	return obj, nil
}

func (p *Params) ObjectOr(name string, fallback map[string]interface{}) map[string]interface{} {
	if v, err := p.Object(name); err == nil {
		return v
	}
	return fallback
}
