package pipeline

import (
	"encoding/json"

	"github.com/matzehuels/schemaplot/pkg/cache"
	"github.com/matzehuels/schemaplot/pkg/schema"
)

// snapshot is the cached and hashed form of a loaded schema.
type snapshot struct {
	Tables      []schema.TableDef      `json:"tables"`
	ForeignKeys []schema.ForeignKeyDef `json:"foreign_keys,omitempty"`
}

func marshalSchema(s *schema.Schema) ([]byte, error) {
	tables, fks := schema.Defs(s)
	return json.Marshal(snapshot{Tables: tables, ForeignKeys: fks})
}

func unmarshalSchema(data []byte) (*schema.Schema, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return schema.Build(snap.Tables, snap.ForeignKeys)
}

// SchemaHash returns a content hash of the keys and columns of s. Two
// schemas with the same hash produce the same layout.
func SchemaHash(s *schema.Schema) (string, error) {
	data, err := marshalSchema(s)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}
