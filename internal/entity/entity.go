// Package entity implements C6: parsing a flat list of "schema" or
// "schema.table" strings into the disjoint schema/table sets a restore
// pipeline needs.
package entity

import (
	"strings"

	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Parse partitions value into full schemas (named on their own, with no
// table ever named under them), table schemas (the schema half of any
// "schema.table" entry) and tables. An empty string contributes nothing.
func Parse(value []string) types.EntityList {
	fullSchemas := make(map[string]struct{})
	tableSchemas := make(map[string]struct{})
	tables := make(map[types.TableDescription]struct{})

	for _, raw := range value {
		switch d := parseOne(raw); d.kind {
		case kindSchema:
			fullSchemas[d.schema] = struct{}{}
		case kindTable:
			tableSchemas[d.schema] = struct{}{}
			tables[types.TableDescription{Schema: d.schema, Name: d.name}] = struct{}{}
		}
	}

	for schema := range fullSchemas {
		if _, ok := tableSchemas[schema]; ok {
			delete(fullSchemas, schema)
		}
	}

	return types.EntityList{
		FullSchemas:  fullSchemas,
		TableSchemas: tableSchemas,
		Tables:       tables,
	}
}

type kind int

const (
	kindEmpty kind = iota
	kindSchema
	kindTable
)

type description struct {
	kind   kind
	schema string
	name   string
}

func parseOne(value string) description {
	if value == "" {
		return description{kind: kindEmpty}
	}

	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		return description{kind: kindTable, schema: value[:idx], name: value[idx+1:]}
	}

	return description{kind: kindSchema, schema: value}
}
