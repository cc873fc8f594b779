package etl

import "rite/internal/model"

// ── Transformer ────────────────────────────────────────────
// Transformers modify records in-flight between importer and exporters.
// They mutate the record in place and report whether to keep it.
// Built-ins live in etl/transformers/.

// Transformer processes a single record. If keep is false, the record is
// dropped and later transformers and exporters never see it.
type Transformer interface {
	Initializable
	Transform(rec *model.Record) (keep bool, err error)
}

// ApplyTransformers runs a chain of transformers on a record.
func ApplyTransformers(rec *model.Record, ts []Transformer) (bool, error) {
	for _, t := range ts {
		keep, err := t.Transform(rec)
		if err != nil || !keep {
			return false, err
		}
	}
	return true, nil
}
