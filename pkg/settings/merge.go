package settings

import "github.com/doodlesbykumbi/tenant-settings/pkg/model"

// Merge overlays override on base at the top level only. Every field present
// in override replaces base's, including explicit nulls; nested objects are
// replaced whole. Neither argument is modified.
func Merge(base, override model.Document) model.Document {
	out := base.Clone()
	if out == nil {
		out = model.Document{}
	}
	for field, v := range override.Clone() {
		out[field] = v
	}
	return out
}
