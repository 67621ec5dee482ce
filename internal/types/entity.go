package types

// TableDescription identifies a single table within a schema.
type TableDescription struct {
	Schema string
	Name   string
}

// IndexDescription identifies a single index within a schema.
type IndexDescription struct {
	Schema string
	Name   string
}

// EntityList is the disjoint partition of a raw "schema"/"schema.table"
// object list produced by the entity parser (C6).
type EntityList struct {
	FullSchemas  map[string]struct{}
	TableSchemas map[string]struct{}
	Tables       map[TableDescription]struct{}
}
