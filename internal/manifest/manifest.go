// Package manifest implements C7: reading the flat index manifest file
// (schema,table,index per line) and selecting the indexes that belong
// to a targeted set of tables.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// ReadIndexes reads path and returns every IndexDescription whose
// (schema, table) pair is present in tables. Each line must be exactly
// "schema,table,index" (the third field may itself contain commas, since
// the line is split into at most 3 parts); any line with fewer than 3
// comma-separated parts is a hard error, since the manifest format has
// no quoting to recover from a malformed row.
func ReadIndexes(path string, tables map[types.TableDescription]struct{}) (map[types.IndexDescription]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index manifest %q: %w", path, err)
	}
	defer file.Close()

	result := make(map[types.IndexDescription]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()

		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 3 {
			return nil, fmt.Errorf("incorrect index row %q, expected 3 values separated by comma", line)
		}

		table := types.TableDescription{Schema: parts[0], Name: parts[1]}
		if _, ok := tables[table]; !ok {
			continue
		}

		index := types.IndexDescription{Schema: parts[0], Name: parts[2]}
		result[index] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index manifest %q: %w", path, err)
	}

	return result, nil
}
