package primitive

import "testing"

func TestExtractEntitiesKeepsOnlySchemaMatches(t *testing.T) {
	schema := EntitySchema{
		Types: []string{"person"},
		Match: func(typ, span string) bool { return typ == "person" && span == "Alice" },
	}
	entities := ExtractEntities("Alice met Bob yesterday", schema)
	if len(entities) != 1 || entities[0].Value != "Alice" {
		t.Fatalf("expected only 'Alice' to match, got %+v", entities)
	}
}
