// This file implements JSONL loading for startup.
package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// jsonlTableMapping maps JSONL filenames to their SQLite tables and column
// lists. Order matters: field_values references entities, so it loads last.
var jsonlTableMapping = []struct {
	file    string
	table   string
	orderBy string
	columns []string
}{
	{
		entitiesJSONL, "entities", "entity_type, entity_id",
		[]string{"entity_type", "entity_id", "uuid", "bundle", "revision_id", "langcode", "created_at", "updated_at"},
	},
	{
		fieldValuesJSONL, "field_values", "entity_type, entity_id, field_name, delta, langcode",
		[]string{"entity_type", "entity_id", "field_name", "delta", "langcode", "value"},
	},
}

// loadAllJSONL reads each JSONL file from dataDir and inserts records into the
// corresponding SQLite tables. Loading is transactional: all succeed or the
// database remains empty. Malformed lines and rows violating constraints are
// skipped; unknown JSON keys are ignored. It returns the number of entity
// rows loaded.
func loadAllJSONL(db *sql.DB, dataDir string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	entities := 0
	for _, mapping := range jsonlTableMapping {
		path := filepath.Join(dataDir, mapping.file)
		records, err := readJSONL(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", mapping.file, err)
		}

		if len(records) == 0 {
			continue
		}

		n, err := insertRecords(tx, mapping.table, mapping.columns, records)
		if err != nil {
			return 0, fmt.Errorf("loading %s into %s: %w", mapping.file, mapping.table, err)
		}
		if mapping.table == "entities" {
			entities = n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}

	return entities, nil
}

// insertRecords inserts parsed JSONL records into a SQLite table and returns
// how many were accepted. Only columns listed in the mapping are extracted;
// extra fields from newer files do not cause errors.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) (int, error) {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		obj, err := decodeRecord(rec)
		if err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = columnValue(obj[col])
		}

		if _, err := stmt.Exec(args...); err != nil {
			// Constraint violations (duplicates, orphaned field rows) are
			// skipped like malformed lines.
			continue
		}
		inserted++
	}

	return inserted, nil
}

// decodeRecord unmarshals a JSONL line keeping numbers as json.Number so
// integer ids and values do not turn into floats.
func decodeRecord(rec json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(rec))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// columnValue converts a decoded JSON value into a SQLite argument.
func columnValue(val any) any {
	switch v := val.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return val
	}
}
