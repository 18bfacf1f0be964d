package dialect

import (
	"fmt"
	"maps"
	"slices"
)

// Dialect names.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	MySQL57   = "mysql5"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
)

// PagingStyle is how LIMIT and OFFSET are spelled.
type PagingStyle uint8

// Paging styles.
const (
	LimitOffset PagingStyle = iota + 1 // LIMIT n OFFSET m
	OffsetFetch                        // OFFSET m ROWS FETCH NEXT n ROWS ONLY
)

// PlaceholderStyle is how bind parameters are written.
type PlaceholderStyle uint8

// Placeholder styles.
const (
	Question PlaceholderStyle = iota + 1 // ?
	Dollar                               // $1
	AtP                                  // @p1
	Colon                                // :1
)

// ConcatStyle is how string concatenation is spelled.
type ConcatStyle uint8

// Concatenation styles.
const (
	ConcatPipes ConcatStyle = iota + 1 // a || b
	ConcatFunc                         // concat(a, b)
	ConcatPlus                         // a + b
)

// JSONObjectStyle is how JSON object constructor arguments are written.
type JSONObjectStyle uint8

// JSON object styles.
const (
	JSONPairs    JSONObjectStyle = iota + 1 // f('k', v, ...)
	JSONKeyValue                            // f('k' VALUE v, ...)
)

// UUIDStrategy is how uuid columns are stored. The zero value means "use
// the dialect default".
type UUIDStrategy uint8

// UUID strategies.
const (
	// UUIDString stores uuids natively or as their canonical text form.
	UUIDString UUIDStrategy = iota + 1
	// UUIDBinary stores uuids as 16-byte blobs converted by dialect
	// functions when a string form is needed.
	UUIDBinary
)

// UpdateFromStyle is how an update joins additional sources.
type UpdateFromStyle uint8

// Update styles.
const (
	UpdateFromNone   UpdateFromStyle = iota // not supported
	UpdateFromClause                        // UPDATE t SET ... FROM s WHERE ...
	UpdateMultiTable                        // UPDATE t, s SET ... WHERE ...
)

// UpsertStyle is how an insert falls back to an update on conflicts.
type UpsertStyle uint8

// Upsert styles.
const (
	UpsertNone           UpsertStyle = iota // not supported
	UpsertOnConflict                        // ON CONFLICT (...) DO ...
	UpsertOnDuplicateKey                    // ON DUPLICATE KEY UPDATE ...
)

// Aggregation names the functions used to build aggregated arrays.
type Aggregation struct {
	// ArrayAgg collects one JSON value per row, e.g. json_agg.
	ArrayAgg string `yaml:"array_agg"`
	// JSONObject builds one JSON object per row, e.g. json_build_object.
	JSONObject string `yaml:"json_object"`
	// Style is the argument style of JSONObject.
	Style JSONObjectStyle `yaml:"style"`
}

// Supported reports if aggregated arrays can be compiled.
func (a Aggregation) Supported() bool {
	return a.ArrayAgg != "" && a.JSONObject != ""
}

// Capabilities is the capability profile of a dialect, consumed by the
// compiler and the connection manager.
type Capabilities struct {
	Name string `yaml:"name"`

	SupportsReturning    bool `yaml:"returning"`
	SupportsCTE          bool `yaml:"cte"`
	SupportsRecursiveCTE bool `yaml:"recursive_cte"`
	// RecursiveKeyword reports if WITH RECURSIVE is spelled out.
	RecursiveKeyword      bool `yaml:"recursive_keyword"`
	SupportsNativeBoolean bool `yaml:"native_boolean"`
	// PredicateAsValue reports if a predicate may be projected as a value.
	PredicateAsValue       bool `yaml:"predicate_as_value"`
	SupportsDefaultKeyword bool `yaml:"default_keyword"`
	DeleteUsing            bool `yaml:"delete_using"`
	// NoTableAliasAs drops AS between a table and its alias.
	NoTableAliasAs bool `yaml:"no_table_alias_as"`
	// LastInsertIDIsFirst reports if the driver returns the id of the first
	// row of a multi-row insert rather than the last one.
	LastInsertIDIsFirst bool `yaml:"last_insert_id_is_first"`

	Paging PagingStyle `yaml:"paging"`
	// OffsetOnlyLimit is the LIMIT written when only an offset is given.
	OffsetOnlyLimit string `yaml:"offset_only_limit"`
	// PagingNeedsOrder reports if paging requires an ORDER BY clause.
	PagingNeedsOrder bool `yaml:"paging_needs_order"`

	Placeholder PlaceholderStyle `yaml:"placeholder"`
	Quote       string           `yaml:"quote"`
	Concat      ConcatStyle      `yaml:"concat"`
	// ValuesRowKeyword prefixes each row of a VALUES table constructor.
	ValuesRowKeyword string          `yaml:"values_row_keyword"`
	UpdateFrom       UpdateFromStyle `yaml:"update_from"`
	Upsert           UpsertStyle     `yaml:"upsert"`
	// DummyTable is selected from when a select has no source.
	DummyTable string `yaml:"dummy_table"`
	// DefaultValues is the tail of an insert of a row made of defaults.
	// Empty means DEFAULT VALUES.
	DefaultValues string `yaml:"default_values"`

	Aggregation Aggregation `yaml:"aggregation"`

	UUID UUIDStrategy `yaml:"uuid"`
	// UUIDToString and BinaryUUIDToString are fmt templates turning a
	// uuid column of the respective strategy into its canonical text. An
	// empty template makes the conversion a CompilationError.
	UUIDToString       string `yaml:"uuid_to_string"`
	BinaryUUIDToString string `yaml:"binary_uuid_to_string"`

	// Functions maps scalar function names to the dialect's spelling.
	Functions map[string]string `yaml:"functions"`
}

// Func returns the dialect's spelling of a scalar function.
func (c *Capabilities) Func(name string) string {
	if f, ok := c.Functions[name]; ok {
		return f
	}
	return name
}

// Clone returns a deep copy of c.
func (c *Capabilities) Clone() *Capabilities {
	cc := *c
	cc.Functions = maps.Clone(c.Functions)
	return &cc
}

var profiles = map[string]*Capabilities{
	Postgres: {
		Name:                   Postgres,
		SupportsReturning:      true,
		SupportsCTE:            true,
		SupportsRecursiveCTE:   true,
		RecursiveKeyword:       true,
		SupportsNativeBoolean:  true,
		PredicateAsValue:       true,
		SupportsDefaultKeyword: true,
		DeleteUsing:            true,
		Paging:                 LimitOffset,
		Placeholder:            Dollar,
		Quote:                  `"`,
		Concat:                 ConcatPipes,
		UpdateFrom:             UpdateFromClause,
		Upsert:                 UpsertOnConflict,
		Aggregation:            Aggregation{ArrayAgg: "json_agg", JSONObject: "json_build_object", Style: JSONPairs},
		UUID:                   UUIDString,
		UUIDToString:           "CAST(%s AS text)",
		Functions:              map[string]string{"length": "char_length"},
	},
	SQLite: {
		Name:                 SQLite,
		SupportsReturning:    true,
		SupportsCTE:          true,
		SupportsRecursiveCTE: true,
		RecursiveKeyword:     true,
		PredicateAsValue:     true,
		Paging:               LimitOffset,
		OffsetOnlyLimit:      "-1",
		Placeholder:          Question,
		Quote:                `"`,
		Concat:               ConcatPipes,
		UpdateFrom:           UpdateFromClause,
		Upsert:               UpsertOnConflict,
		Aggregation:          Aggregation{ArrayAgg: "json_group_array", JSONObject: "json_object", Style: JSONPairs},
		UUID:                 UUIDString,
		UUIDToString:         "%s",
		BinaryUUIDToString:   "(SELECT lower(substr(h, 1, 8) || '-' || substr(h, 9, 4) || '-' || substr(h, 13, 4) || '-' || substr(h, 17, 4) || '-' || substr(h, 21)) FROM (SELECT hex(%s) AS h))",
	},
	MySQL: {
		Name:                   MySQL,
		SupportsCTE:            true,
		SupportsRecursiveCTE:   true,
		RecursiveKeyword:       true,
		PredicateAsValue:       true,
		SupportsDefaultKeyword: true,
		LastInsertIDIsFirst:    true,
		Paging:                 LimitOffset,
		OffsetOnlyLimit:        "18446744073709551615",
		Placeholder:            Question,
		Quote:                  "`",
		Concat:                 ConcatFunc,
		ValuesRowKeyword:       "ROW",
		DefaultValues:          "() VALUES ()",
		UpdateFrom:             UpdateMultiTable,
		Upsert:                 UpsertOnDuplicateKey,
		Aggregation:            Aggregation{ArrayAgg: "json_arrayagg", JSONObject: "json_object", Style: JSONPairs},
		UUID:                   UUIDString,
		UUIDToString:           "%s",
		BinaryUUIDToString:     "BIN_TO_UUID(%s)",
		Functions:              map[string]string{"length": "char_length"},
	},
	SQLServer: {
		Name:                   SQLServer,
		SupportsCTE:            true,
		SupportsRecursiveCTE:   true,
		SupportsDefaultKeyword: true,
		Paging:                 OffsetFetch,
		PagingNeedsOrder:       true,
		Placeholder:            AtP,
		Quote:                  `"`,
		Concat:                 ConcatPlus,
		UpdateFrom:             UpdateFromClause,
		UUID:                   UUIDString,
		UUIDToString:           "CAST(%s AS nvarchar(36))",
		Functions:              map[string]string{"length": "len"},
	},
	Oracle: {
		Name:                   Oracle,
		SupportsCTE:            true,
		SupportsRecursiveCTE:   true,
		SupportsDefaultKeyword: true,
		NoTableAliasAs:         true,
		Paging:                 OffsetFetch,
		Placeholder:            Colon,
		Quote:                  `"`,
		Concat:                 ConcatPipes,
		DummyTable:             "dual",
		Aggregation:            Aggregation{ArrayAgg: "json_arrayagg", JSONObject: "json_object", Style: JSONKeyValue},
		UUID:                   UUIDBinary,
		UUIDToString:           "%s",
		BinaryUUIDToString:     "lower(regexp_replace(rawtohex(%s), '(.{8})(.{4})(.{4})(.{4})(.{12})', '\\1-\\2-\\3-\\4-\\5'))",
	},
}

func init() {
	mysql5 := profiles[MySQL].Clone()
	mysql5.Name = MySQL57
	mysql5.SupportsCTE = false
	mysql5.SupportsRecursiveCTE = false
	mysql5.ValuesRowKeyword = ""
	mysql5.BinaryUUIDToString = "lower(insert(insert(insert(insert(hex(%s), 9, 0, '-'), 14, 0, '-'), 19, 0, '-'), 24, 0, '-'))"
	profiles[MySQL57] = mysql5
}

// Profile returns a copy of the built-in capability profile of a dialect.
func Profile(name string) (*Capabilities, error) {
	c, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q", name)
	}
	return c.Clone(), nil
}

// MustProfile is like Profile but panics on unknown dialects.
func MustProfile(name string) *Capabilities {
	c, err := Profile(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns the names of the built-in profiles in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(profiles))
}
