package sqlite

// Schema DDL. SQLite is a query cache rebuilt from the JSONL files on every
// Attach, so the DDL never needs migrating.
const (
	createEntities = `CREATE TABLE entities (
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    uuid TEXT NOT NULL UNIQUE,
    bundle TEXT NOT NULL,
    revision_id INTEGER,
    langcode TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (entity_type, entity_id)
);`

	// value is deliberately untyped so integers, floats and text keep their
	// storage class and compare the way the field type expects.
	createFieldValues = `CREATE TABLE field_values (
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    field_name TEXT NOT NULL,
    delta INTEGER NOT NULL,
    langcode TEXT NOT NULL,
    value,
    PRIMARY KEY (entity_type, entity_id, field_name, delta, langcode),
    FOREIGN KEY (entity_type, entity_id) REFERENCES entities(entity_type, entity_id) ON DELETE CASCADE
);`
)

const (
	idxEntitiesBundle    = `CREATE INDEX idx_entities_bundle ON entities(entity_type, bundle);`
	idxFieldValuesLookup = `CREATE INDEX idx_field_values_lookup ON field_values(entity_type, field_name, value);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createEntities,
	createFieldValues,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxEntitiesBundle,
	idxFieldValuesLookup,
}
