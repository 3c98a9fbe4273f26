package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
)

// Defaults maps settings keys to their global default documents.
type Defaults map[string]model.Document

// LoadDefaults decodes a YAML mapping of settings key to document. Values
// are normalised to their JSON form so they compare equal to what the
// store returns.
func LoadDefaults(r io.Reader) (Defaults, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Defaults{}, nil
		}
		return nil, fmt.Errorf("failed to parse defaults: %w", err)
	}

	out := make(Defaults, len(raw))
	for key, v := range raw {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("defaults for %q: %w", key, err)
		}
		var doc model.Document
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("defaults for %q must be a mapping: %w", key, err)
		}
		if doc == nil {
			doc = model.Document{}
		}
		out[key] = doc
	}
	return out, nil
}

// LoadDefaultsFile is LoadDefaults for a path.
func LoadDefaultsFile(path string) (Defaults, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDefaults(f)
}

// Keys returns the keys of d in sorted order.
func (d Defaults) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyDefaults writes every document of d as the global row of its key.
// With replace, fields missing from d are dropped from the stored row;
// otherwise they are merged. Keys are checked before anything is written.
func (r *Resolver) ApplyDefaults(ctx context.Context, d Defaults, replace bool) (int, error) {
	for _, key := range d.Keys() {
		if err := r.registry.Check(key); err != nil {
			return 0, err
		}
	}
	applied := 0
	for _, key := range d.Keys() {
		var err error
		if replace {
			_, err = r.ReplaceScope(ctx, key, model.GlobalScope(), d[key])
		} else {
			_, err = r.PersistScope(ctx, key, model.GlobalScope(), d[key])
		}
		if err != nil {
			return applied, fmt.Errorf("apply defaults for %s: %w", key, err)
		}
		applied++
	}
	return applied, nil
}
