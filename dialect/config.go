package dialect

import (
	"errors"
	"fmt"
	"io"
	"maps"

	"gopkg.in/yaml.v3"
)

// ProfileOverride is one entry of a profile file. Every field except Name
// and Base is optional and replaces the base profile's value when set.
type ProfileOverride struct {
	Name             string            `yaml:"name"`
	Base             string            `yaml:"base"`
	Returning        *bool             `yaml:"returning"`
	CTE              *bool             `yaml:"cte"`
	RecursiveCTE     *bool             `yaml:"recursive_cte"`
	NativeBoolean    *bool             `yaml:"native_boolean"`
	PredicateAsValue *bool             `yaml:"predicate_as_value"`
	Paging           string            `yaml:"paging"`
	Placeholder      string            `yaml:"placeholder"`
	UUID             string            `yaml:"uuid"`
	Upsert           string            `yaml:"upsert"`
	Aggregation      *Aggregation      `yaml:"aggregation"`
	Functions        map[string]string `yaml:"functions"`
}

type profileFile struct {
	Profiles []ProfileOverride `yaml:"profiles"`
}

var (
	pagingStyles = map[string]PagingStyle{
		"limit_offset": LimitOffset,
		"offset_fetch": OffsetFetch,
	}
	placeholderStyles = map[string]PlaceholderStyle{
		"question": Question,
		"dollar":   Dollar,
		"at":       AtP,
		"colon":    Colon,
	}
	uuidStrategies = map[string]UUIDStrategy{
		"string": UUIDString,
		"binary": UUIDBinary,
	}
	upsertStyles = map[string]UpsertStyle{
		"none":             UpsertNone,
		"on_conflict":      UpsertOnConflict,
		"on_duplicate_key": UpsertOnDuplicateKey,
	}
)

// LoadProfiles reads capability overrides from YAML:
//
//	profiles:
//	  - name: legacy-sqlite
//	    base: sqlite
//	    returning: false
//	    uuid: binary
//	    functions:
//	      length: len
//
// Each entry starts from a copy of its built-in base profile, or from a
// profile defined earlier in the same file.
func LoadProfiles(r io.Reader) (map[string]*Capabilities, error) {
	var f profileFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dialect: decode profiles: %w", err)
	}
	out := make(map[string]*Capabilities, len(f.Profiles))
	for _, o := range f.Profiles {
		if o.Name == "" {
			return nil, errors.New("dialect: profile without name")
		}
		base, ok := out[o.Base]
		if !ok {
			var err error
			if base, err = Profile(o.Base); err != nil {
				return nil, fmt.Errorf("dialect: profile %q: %w", o.Name, err)
			}
		}
		c, err := o.apply(base.Clone())
		if err != nil {
			return nil, fmt.Errorf("dialect: profile %q: %w", o.Name, err)
		}
		out[o.Name] = c
	}
	return out, nil
}

func (o *ProfileOverride) apply(c *Capabilities) (*Capabilities, error) {
	c.Name = o.Name
	setBool(&c.SupportsReturning, o.Returning)
	setBool(&c.SupportsCTE, o.CTE)
	setBool(&c.SupportsRecursiveCTE, o.RecursiveCTE)
	setBool(&c.SupportsNativeBoolean, o.NativeBoolean)
	setBool(&c.PredicateAsValue, o.PredicateAsValue)
	if err := setEnum(&c.Paging, pagingStyles, "paging", o.Paging); err != nil {
		return nil, err
	}
	if err := setEnum(&c.Placeholder, placeholderStyles, "placeholder", o.Placeholder); err != nil {
		return nil, err
	}
	if err := setEnum(&c.UUID, uuidStrategies, "uuid", o.UUID); err != nil {
		return nil, err
	}
	if err := setEnum(&c.Upsert, upsertStyles, "upsert", o.Upsert); err != nil {
		return nil, err
	}
	if o.Aggregation != nil {
		c.Aggregation = *o.Aggregation
		if c.Aggregation.Style == 0 {
			c.Aggregation.Style = JSONPairs
		}
	}
	if len(o.Functions) > 0 {
		if c.Functions == nil {
			c.Functions = make(map[string]string, len(o.Functions))
		}
		maps.Copy(c.Functions, o.Functions)
	}
	return c, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setEnum[T any](dst *T, values map[string]T, key, v string) error {
	if v == "" {
		return nil
	}
	x, ok := values[v]
	if !ok {
		return fmt.Errorf("unknown %s %q", key, v)
	}
	*dst = x
	return nil
}
