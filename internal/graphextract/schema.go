package graphextract

import (
	"hybridrag/internal/config"
	"hybridrag/internal/model"
)

// FromNamedSchema converts a configured config.NamedSchema into the
// model.Schema shape the extractor consumes.
func FromNamedSchema(ns config.NamedSchema) model.Schema {
	triples := make([]model.SchemaTriple, len(ns.ValidationTriples))
	for i, v := range ns.ValidationTriples {
		triples[i] = model.SchemaTriple{SubjectLabel: v.SubjectLabel, Relation: v.Relation, ObjectLabel: v.ObjectLabel}
	}
	return model.Schema{
		Name:              ns.Name,
		EntityLabels:      ns.EntityLabels,
		RelationLabels:    ns.RelationLabels,
		ValidationTriples: triples,
		Strict:            ns.Strict,
	}
}

// KuzuDefaultSchema is the fallback schema used when the graph backend is
// kuzu and no user schema is configured.
var KuzuDefaultSchema = model.Schema{
	Name:           "kuzu-default",
	EntityLabels:   []string{"Entity"},
	RelationLabels: []string{"WORKS_FOR", "LOCATED_IN", "USES", "COLLABORATES_WITH", "DEVELOPS", "MENTIONS"},
	ValidationTriples: []model.SchemaTriple{
		{SubjectLabel: "Entity", Relation: "WORKS_FOR", ObjectLabel: "Entity"},
		{SubjectLabel: "Entity", Relation: "LOCATED_IN", ObjectLabel: "Entity"},
		{SubjectLabel: "Entity", Relation: "USES", ObjectLabel: "Entity"},
		{SubjectLabel: "Entity", Relation: "COLLABORATES_WITH", ObjectLabel: "Entity"},
		{SubjectLabel: "Entity", Relation: "DEVELOPS", ObjectLabel: "Entity"},
		{SubjectLabel: "Chunk", Relation: "MENTIONS", ObjectLabel: "Entity"},
		{SubjectLabel: "Entity", Relation: "MENTIONS", ObjectLabel: "Entity"},
	},
	Strict: true,
}

// kuzuDefaultMaxTriplets is the default cap on extracted triples per
// chunk when the kuzu graph backend supplies its own schema.
const kuzuDefaultMaxTriplets = 15

// ResolveOptions picks extraction mode: an explicit user schema wins;
// absent that, the kuzu graph backend forces schema-guided extraction
// against KuzuDefaultSchema; absent both, extraction is schema-free.
func ResolveOptions(userSchema *model.Schema, graphBackendIsKuzu bool, maxTripletsPerChunk int) Options {
	if userSchema != nil {
		opt := Options{Schema: *userSchema, SchemaGuided: true, MaxTripletsPerChunk: maxTripletsPerChunk}
		if opt.MaxTripletsPerChunk <= 0 {
			opt.MaxTripletsPerChunk = 10
		}
		return opt
	}
	if graphBackendIsKuzu {
		limit := maxTripletsPerChunk
		if limit <= 0 {
			limit = kuzuDefaultMaxTriplets
		}
		return Options{Schema: KuzuDefaultSchema, SchemaGuided: true, MaxTripletsPerChunk: limit}
	}
	limit := maxTripletsPerChunk
	if limit <= 0 {
		limit = 10
	}
	return Options{SchemaGuided: false, MaxTripletsPerChunk: limit}
}
