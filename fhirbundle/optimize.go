package fhirbundle

// ProcessForQR applies Process and then the QR size-reduction rewrite
// described in spec.md §4.2: entries get resource-scheme fullUrls,
// references into those fullUrls are rewritten, and clinically
// inessential fields (id, meta other than security, text on
// DomainResources/CodeableConcepts, scalar display, null/empty values) are
// dropped throughout the Bundle. The rewrite is deterministic: running it
// again on its own output is a no-op (the optimization fixed point in
// spec.md §8).
func ProcessForQR(b Bundle) (Bundle, error) {
	processed, err := Process(b)
	if err != nil {
		return Bundle{}, err
	}

	shortURIs := make(map[string]string, len(processed.Entries))
	for i, e := range processed.Entries {
		if e.FullURL != "" {
			shortURIs[e.FullURL] = shortURI(i)
		}
	}

	out := Bundle{ResourceType: processed.ResourceType, Type: processed.Type}
	out.Entries = make([]Entry, len(processed.Entries))
	for i, e := range processed.Entries {
		fullURL := e.FullURL
		if fullURL != "" {
			fullURL = shortURI(i)
		}

		rewritten := rewriteValue(e.Resource, shortURIs)
		resource, _ := rewritten.(map[string]interface{})
		out.Entries[i] = Entry{FullURL: fullURL, Resource: resource}
	}

	return out, nil
}

func shortURI(i int) string {
	return "resource:" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := make([]byte, 0, 8)
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// rewriteValue performs the single depth-first walk that rewrites
// "reference" strings, drops inessential fields, and cleans up arrays, per
// spec.md §4.2 items 2-4. It is allocation-driven recursion rather than an
// explicit work queue, since FHIR Bundles are bounded-depth structures
// under normal operation; spec.md §9 permits either.
func rewriteValue(v interface{}, shortURIs map[string]string) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return rewriteObject(t, shortURIs)
	case []interface{}:
		return rewriteArray(t, shortURIs)
	default:
		return v
	}
}

func rewriteObject(obj map[string]interface{}, shortURIs map[string]string) interface{} {
	isDomainResource := hasAny(obj, "text", "contained", "extension", "modifierExtension")
	_, isCodeableConcept := obj["coding"].([]interface{})

	out := make(map[string]interface{}, len(obj))
	for key, val := range obj {
		switch key {
		case "id":
			continue
		case "meta":
			if security := metaSecurity(val); security != nil {
				rewrittenSecurity := rewriteValue(security, shortURIs)
				if !isEmptyValue(rewrittenSecurity) {
					out["meta"] = map[string]interface{}{"security": rewrittenSecurity}
				}
			}
			continue
		case "text":
			if isDomainResource || isCodeableConcept {
				continue
			}
		case "display":
			if _, isString := val.(string); isString {
				continue
			}
		case "reference":
			if s, ok := val.(string); ok {
				if mapped, found := shortURIs[s]; found {
					out[key] = mapped
					continue
				}
				out[key] = s
				continue
			}
		}

		if isEmptyValue(val) {
			continue
		}

		rewritten := rewriteValue(val, shortURIs)
		if isEmptyValue(rewritten) {
			continue
		}
		out[key] = rewritten
	}

	return out
}

func rewriteArray(arr []interface{}, shortURIs map[string]string) interface{} {
	out := make([]interface{}, 0, len(arr))
	for _, el := range arr {
		if isEmptyValue(el) {
			continue
		}
		rewritten := rewriteValue(el, shortURIs)
		if isEmptyValue(rewritten) {
			continue
		}
		out = append(out, rewritten)
	}
	return out
}

func hasAny(obj map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func metaSecurity(meta interface{}) interface{} {
	m, ok := meta.(map[string]interface{})
	if !ok {
		return nil
	}
	security, ok := m["security"]
	if !ok || isEmptyValue(security) {
		return nil
	}
	return security
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}
