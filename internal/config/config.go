package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ConfigItem is one key/value pair of a component configuration.
type ConfigItem struct {
	Key   string `xml:"key,attr" yaml:"key" json:"key"`
	Value string `xml:"value,attr" yaml:"value" json:"value"`
}

// Configuration is the ordered key/value bundle handed to a component's
// Init. XML optionally names an external configuration resource.
type Configuration struct {
	XML   string       `xml:"xml,attr,omitempty" yaml:"xml,omitempty" json:"xml,omitempty"`
	Items []ConfigItem `xml:"config" yaml:"config" json:"config"`
}

// New returns a configuration holding the given key/value pairs, which
// must come in pairs.
func New(kv ...string) *Configuration {
	c := &Configuration{}
	for i := 0; i+1 < len(kv); i += 2 {
		c.Insert(kv[i], kv[i+1])
	}
	return c
}

// Get returns the value of the first item with key.
func (c *Configuration) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, item := range c.Items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return "", false
}

// GetResult is Get with a missing key reported as an error.
func (c *Configuration) GetResult(key string) (string, error) {
	v, ok := c.Get(key)
	if !ok {
		return "", fmt.Errorf("Configuration key '%s' missing", key)
	}
	return v, nil
}

// GetOr returns the value for key, or def when it is absent.
func (c *Configuration) GetOr(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// GetBool accepts true/1 and false/0, case-insensitively.
func (c *Configuration) GetBool(key string) (bool, bool) {
	v, ok := c.Get(key)
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// GetBoolOr returns GetBool, or def when the key is absent or unparseable.
func (c *Configuration) GetBoolOr(key string, def bool) bool {
	if v, ok := c.GetBool(key); ok {
		return v
	}
	return def
}

// Len returns the number of items.
func (c *Configuration) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Insert overwrites the first item with key, or appends a new one.
func (c *Configuration) Insert(key, value string) {
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items[i].Value = value
			return
		}
	}
	c.Items = append(c.Items, ConfigItem{Key: key, Value: value})
}

// Clone returns an independent copy.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return &Configuration{}
	}
	return &Configuration{XML: c.XML, Items: append([]ConfigItem{}, c.Items...)}
}

// ── Typed access ───────────────────────────────────────────

// Scalar lists the types Value and List can parse.
type Scalar interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Value parses the item for key as T. The raw text is not trimmed, so
// "  123  " does not parse as a number. Booleans accept only true/false.
func Value[T Scalar](c *Configuration, key string) (T, bool) {
	raw, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	return parse[T](raw)
}

// ValueOr is Value with a fallback.
func ValueOr[T Scalar](c *Configuration, key string, def T) T {
	if v, ok := Value[T](c, key); ok {
		return v
	}
	return def
}

// Optional returns def when key is absent and an error when it is present
// but does not parse as T.
func Optional[T Scalar](c *Configuration, key string, def T) (T, error) {
	raw, ok := c.Get(key)
	if !ok {
		return def, nil
	}
	v, ok := parse[T](raw)
	if !ok {
		return def, fmt.Errorf("Configuration key '%s' has invalid value %q", key, raw)
	}
	return v, nil
}

// List splits the item for key on commas, trims each element and keeps
// the ones that parse as T.
func List[T Scalar](c *Configuration, key string) []T {
	raw, ok := c.Get(key)
	if !ok {
		return nil
	}
	var out []T
	for _, part := range strings.Split(raw, ",") {
		if v, ok := parse[T](strings.TrimSpace(part)); ok {
			out = append(out, v)
		}
	}
	return out
}

func parse[T Scalar](raw string) (T, bool) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(raw)
	case reflect.Bool:
		switch raw {
		case "true":
			rv.SetBool(true)
		case "false":
			rv.SetBool(false)
		default:
			return out, false
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, rv.Type().Bits())
		if err != nil {
			return out, false
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, rv.Type().Bits())
		if err != nil {
			return out, false
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, rv.Type().Bits())
		if err != nil {
			return out, false
		}
		rv.SetFloat(f)
	default:
		return out, false
	}
	return out, true
}
