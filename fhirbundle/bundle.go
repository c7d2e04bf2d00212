// Package fhirbundle normalizes and validates FHIR R4 Bundles for use in a
// SMART Health Card, and implements the optional QR size-reduction rewrite.
// See https://spec.smarthealth.cards/#health-cards-are-fhir-resources and
// https://spec.smarthealth.cards/#vc-payload-encoding-optimizations.
package fhirbundle

import (
	"encoding/json"

	"github.com/vintasoftware/kill-the-clipboard/shcerr"
)

// CollectionType is the only Bundle.type value SMART Health Cards permit.
const CollectionType = "collection"

// Entry is one member of a Bundle's entry array. Resource holds the raw
// resource JSON as a generic map so that callers can supply any FHIR R4
// resource without this package needing to model every resource type.
type Entry struct {
	FullURL  string                 `json:"fullUrl,omitempty"`
	Resource map[string]interface{} `json:"resource"`
}

// Bundle is a FHIR R4 Bundle of resourceType "Bundle" and type "collection".
// Entry order is semantically significant after ProcessForQR assigns
// positional resource:i URIs, so Entries is kept as an explicit ordered
// slice rather than folded into a generic map.
type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type"`
	Entries      []Entry `json:"entry,omitempty"`
}

type bundleJSON struct {
	ResourceType string          `json:"resourceType"`
	Type         string          `json:"type,omitempty"`
	Entry        json.RawMessage `json:"entry,omitempty"`
}

type entryJSON struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

// Parse decodes raw Bundle JSON into a Bundle, without validating it.
func Parse(raw []byte) (Bundle, error) {
	var bj bundleJSON
	if err := json.Unmarshal(raw, &bj); err != nil {
		return Bundle{}, shcerr.Wrap(shcerr.FhirValidation, "invalid Bundle JSON", err)
	}

	b := Bundle{ResourceType: bj.ResourceType, Type: bj.Type}
	if len(bj.Entry) > 0 {
		var rawEntries []entryJSON
		if err := json.Unmarshal(bj.Entry, &rawEntries); err != nil {
			return Bundle{}, shcerr.Wrap(shcerr.FhirValidation, "Bundle entry is not an ordered sequence", err)
		}
		b.Entries = make([]Entry, len(rawEntries))
		for i, re := range rawEntries {
			var resource map[string]interface{}
			if len(re.Resource) > 0 {
				if err := json.Unmarshal(re.Resource, &resource); err != nil {
					return Bundle{}, shcerr.Wrap(shcerr.FhirValidation, "Bundle entry resource is not an object", err)
				}
			}
			b.Entries[i] = Entry{FullURL: re.FullURL, Resource: resource}
		}
	}
	return b, nil
}

// Validate enforces invariants B1/B2 from the data model: resourceType must
// be "Bundle", type (if present) must be "collection", entry must be an
// ordered sequence, and every entry must carry a resource with a
// resourceType.
func Validate(b Bundle) error {
	if b.ResourceType != "Bundle" {
		return shcerr.Newf(shcerr.FhirValidation, "resourceType must be %q, got %q", "Bundle", b.ResourceType)
	}
	if b.Type != "" && b.Type != CollectionType {
		return shcerr.Newf(shcerr.FhirValidation, "type must be %q when present, got %q", CollectionType, b.Type)
	}
	for i, entry := range b.Entries {
		if entry.Resource == nil {
			return shcerr.Newf(shcerr.FhirValidation, "entry %d has no resource", i)
		}
		rt, ok := entry.Resource["resourceType"].(string)
		if !ok || rt == "" {
			return shcerr.Newf(shcerr.FhirValidation, "entry %d resource has no resourceType", i)
		}
	}
	return nil
}

// Process validates b, deep-copies it, and defaults Type to "collection"
// when absent. The input is treated as immutable (invariant B1): callers
// always receive a new value, never a mutated view of their own.
func Process(b Bundle) (Bundle, error) {
	if err := Validate(b); err != nil {
		return Bundle{}, err
	}

	cp := deepCopy(b)
	if cp.Type == "" {
		cp.Type = CollectionType
	}
	return cp, nil
}

func deepCopy(b Bundle) Bundle {
	cp := Bundle{ResourceType: b.ResourceType, Type: b.Type}
	if b.Entries != nil {
		cp.Entries = make([]Entry, len(b.Entries))
		for i, e := range b.Entries {
			cp.Entries[i] = Entry{
				FullURL:  e.FullURL,
				Resource: deepCopyMap(e.Resource),
			}
		}
	}
	return cp
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		cp := make([]interface{}, len(t))
		for i, e := range t {
			cp[i] = deepCopyValue(e)
		}
		return cp
	default:
		// Strings, numbers, bools, and nil are immutable in Go's json
		// decoding representation, so they can be shared as-is.
		return v
	}
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(m))
	for k, v := range m {
		cp[k] = deepCopyValue(v)
	}
	return cp
}

// MarshalJSON serializes b with its entries in order, matching the wire
// shape of spec.md §3's Bundle data model.
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{ResourceType: b.ResourceType, Type: b.Type}
	if b.Entries != nil {
		entries := make([]entryJSON, len(b.Entries))
		for i, e := range b.Entries {
			resourceJSON, err := json.Marshal(e.Resource)
			if err != nil {
				return nil, err
			}
			entries[i] = entryJSON{FullURL: e.FullURL, Resource: resourceJSON}
		}
		entryJSONBytes, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		out.Entry = entryJSONBytes
	}
	return json.Marshal(out)
}

// Equal reports whether a and b are structurally identical, used by the
// round-trip tests rather than by the library itself. Go's encoding/json
// marshals map keys in sorted order, so two structurally equal values
// always produce byte-identical JSON regardless of original key order.
func Equal(a, b Bundle) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}
