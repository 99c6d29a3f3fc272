package catalog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
)

// shape tags the payload layouts the catalog has been seen to return.
// Every endpoint picks its own wrapper, so the tag is decided once here and
// callers only ever see a flat []Anime.
type shape int

const (
	shapeUnrecognized shape = iota
	shapeGlobalSearch       // {"search": {"anime": [...]}}
	shapeCollection         // {"anime": [...], "links": ..., "meta": ...}
	shapeData               // {"data": [...]}
	shapeBareList           // [...]
	shapeSingle             // {"anime": {...}}
)

func (s shape) String() string {
	switch s {
	case shapeGlobalSearch:
		return "global_search"
	case shapeCollection:
		return "collection"
	case shapeData:
		return "data"
	case shapeBareList:
		return "bare_list"
	case shapeSingle:
		return "single"
	default:
		return "unrecognized"
	}
}

type envelope struct {
	kind     shape
	items    []json.RawMessage
	included map[string]json.RawMessage
	keys     []string
}

// maxRelationshipDepth bounds relationship resolution: anime -> themes ->
// entries -> videos is four levels, song -> artists is one more.
const maxRelationshipDepth = 6

// Normalize extracts the anime list from any recognized payload layout.
// Unrecognized or malformed payloads yield an empty slice, never an error.
func Normalize(payload []byte, sourceURL string) []Anime {
	env := classify(payload, false)
	logShape(env, sourceURL)
	return decodeItems(env)
}

// NormalizeOne is Normalize for detail endpoints, which also answer with a
// single wrapped resource.
func NormalizeOne(payload []byte, sourceURL string) (Anime, bool) {
	env := classify(payload, true)
	logShape(env, sourceURL)
	items := decodeItems(env)
	if len(items) == 0 {
		return Anime{}, false
	}
	return items[0], true
}

func logShape(env envelope, sourceURL string) {
	if env.kind == shapeUnrecognized {
		slog.Warn("catalog_payload_unrecognized", "url", sourceURL, "keys", env.keys)
		return
	}
	slog.Debug("catalog_payload_shape", "url", sourceURL, "shape", env.kind.String(), "items", len(env.items))
}

func classify(payload []byte, allowSingle bool) envelope {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return envelope{}
	}

	if trimmed[0] == '[' {
		if items, ok := rawList(trimmed); ok {
			return envelope{kind: shapeBareList, items: items}
		}
		return envelope{}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		return envelope{}
	}
	included := indexIncluded(obj["included"])

	if search, ok := obj["search"]; ok {
		var inner map[string]json.RawMessage
		if json.Unmarshal(search, &inner) == nil {
			if items, ok := rawList(inner["anime"]); ok {
				return envelope{kind: shapeGlobalSearch, items: items, included: included}
			}
		}
	}
	if items, ok := rawList(obj["anime"]); ok {
		return envelope{kind: shapeCollection, items: items, included: included}
	}
	if items, ok := rawList(obj["data"]); ok {
		return envelope{kind: shapeData, items: items, included: included}
	}
	if allowSingle {
		for _, key := range []string{"anime", "data"} {
			if single, ok := rawObject(obj[key]); ok {
				return envelope{kind: shapeSingle, items: []json.RawMessage{single}, included: included}
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	return envelope{kind: shapeUnrecognized, keys: keys}
}

func decodeItems(env envelope) []Anime {
	out := make([]Anime, 0, len(env.items))
	for i, raw := range env.items {
		flat := flatten(raw, env.included, 0)
		var a Anime
		if err := json.Unmarshal(flat, &a); err != nil {
			slog.Debug("catalog_item_skipped", "index", i, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

func rawList(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

func rawObject(raw json.RawMessage) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	return trimmed, true
}

// resourceRef is a JSON:API resource identifier.
type resourceRef struct {
	ID   json.RawMessage `json:"id"`
	Type string          `json:"type"`
}

func (r resourceRef) key() string {
	return r.Type + "_" + idString(r.ID)
}

func idString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// numericID turns "123" into 123 so string ids from JSON:API decode into
// the int64 fields.
func numericID(raw json.RawMessage) json.RawMessage {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return raw
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return raw
	}
	return json.RawMessage(s)
}

func indexIncluded(raw json.RawMessage) map[string]json.RawMessage {
	items, ok := rawList(raw)
	if !ok {
		return nil
	}
	index := make(map[string]json.RawMessage, len(items))
	for _, item := range items {
		var ref resourceRef
		if json.Unmarshal(item, &ref) != nil || ref.Type == "" || len(ref.ID) == 0 {
			continue
		}
		index[ref.key()] = item
	}
	return index
}

// flatten rewrites a JSON:API resource ({id, type, attributes,
// relationships}) into the plain nested layout, resolving relationships
// against the included index. Plain objects pass through untouched.
func flatten(raw json.RawMessage, included map[string]json.RawMessage, depth int) json.RawMessage {
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return raw
	}
	attrs, isResource := obj["attributes"]
	if !isResource {
		return raw
	}

	out := make(map[string]json.RawMessage)
	var attributes map[string]json.RawMessage
	if json.Unmarshal(attrs, &attributes) == nil {
		for k, v := range attributes {
			out[k] = v
		}
	}
	if id, ok := obj["id"]; ok {
		out["id"] = numericID(id)
	}
	// "type" is also a theme attribute (OP/ED); the resource type must not
	// shadow it.
	if _, ok := out["type"]; !ok {
		if t, ok := obj["type"]; ok {
			out["type"] = t
		}
	}

	var relationships map[string]struct {
		Data json.RawMessage `json:"data"`
	}
	if rels, ok := obj["relationships"]; ok && json.Unmarshal(rels, &relationships) == nil {
		for name, rel := range relationships {
			if resolved, ok := resolveRelationship(rel.Data, included, depth+1); ok {
				out[name] = resolved
			}
		}
	}

	flat, err := json.Marshal(out)
	if err != nil {
		return raw
	}
	return flat
}

func resolveRelationship(data json.RawMessage, included map[string]json.RawMessage, depth int) (json.RawMessage, bool) {
	if depth > maxRelationshipDepth {
		return nil, false
	}
	if refs, ok := rawList(data); ok {
		resolved := make([]json.RawMessage, 0, len(refs))
		for _, ref := range refs {
			resolved = append(resolved, resolveRef(ref, included, depth))
		}
		out, err := json.Marshal(resolved)
		if err != nil {
			return nil, false
		}
		return out, true
	}
	if ref, ok := rawObject(data); ok {
		return resolveRef(ref, included, depth), true
	}
	return nil, false
}

func resolveRef(raw json.RawMessage, included map[string]json.RawMessage, depth int) json.RawMessage {
	var ref resourceRef
	if json.Unmarshal(raw, &ref) != nil || ref.Type == "" || len(ref.ID) == 0 {
		return flatten(raw, included, depth)
	}
	if full, ok := included[ref.key()]; ok {
		return flatten(full, included, depth)
	}
	stub, err := json.Marshal(map[string]json.RawMessage{"id": numericID(ref.ID)})
	if err != nil {
		return raw
	}
	return stub
}
