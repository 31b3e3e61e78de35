// Package normalize extracts embedding vectors from the response envelopes
// of heterogeneous providers.
//
// Providers disagree on where the vector lives: Ollama's /api/embed returns
// a batched "embeddings" list, OpenAI-compatible services return a "data"
// array of result objects, Gemini-style services nest the vector under
// "embedding.values", and several local servers return a bare "embedding"
// field. Extract tries a fixed, ordered list of these shapes and returns the
// first match.
package normalize

import "fmt"

// ProviderError is a provider-reported failure found in a response body's
// top-level "error" field. It is distinct from "no vector found": a response
// that carries an error envelope failed upstream and must never be probed
// for a vector.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return "provider error: " + e.Message
}

// CheckError inspects the top-level "error" field of a decoded response
// body. It returns a *ProviderError when one is present, nil otherwise.
func CheckError(body map[string]any) *ProviderError {
	v, ok := body["error"]
	if !ok || v == nil {
		return nil
	}
	return &ProviderError{Message: errorMessage(v)}
}

// errorMessage renders a provider error value. Providers send either a bare
// string or an object with a "message" field.
func errorMessage(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("%v", v)
}

// extractor attempts to pull a vector out of one known response shape.
type extractor func(body map[string]any) ([]float64, bool)

// extractors is the shape priority order. The most common real-world shapes
// (bare vector, Ollama's batched list, OpenAI's data array) come before the
// rarer ones, because provider envelopes overlap in field names.
var extractors = []extractor{
	topLevelVector("embedding"),
	batchedVectors("embeddings"),
	dataArray,
	topLevelVector("vector"),
	topLevelVector("values"),
	nestedValues,
}

// Extract returns the embedding vector found in body, trying each known
// shape in priority order. The second return value is false when no shape
// matched; callers must treat that as an upstream failure, not an empty
// embedding.
func Extract(body map[string]any) ([]float64, bool) {
	for _, fn := range extractors {
		if vec, ok := fn(body); ok {
			return vec, true
		}
	}
	return nil, false
}

// topLevelVector matches {"<field>": [0.1, 0.2, ...]}.
func topLevelVector(field string) extractor {
	return func(body map[string]any) ([]float64, bool) {
		return toVector(body[field])
	}
}

// batchedVectors matches {"<field>": [[0.1, ...], ...]} and takes element 0.
// This is the shape Ollama uses when it batches all embeddings into one call.
func batchedVectors(field string) extractor {
	return func(body map[string]any) ([]float64, bool) {
		list, ok := body[field].([]any)
		if !ok || len(list) == 0 {
			return nil, false
		}
		return toVector(list[0])
	}
}

// dataArray matches {"data": [{"embedding": [...]}, ...]}, the OpenAI shape,
// taking element 0 and accepting "vector" as an alternate field name.
func dataArray(body map[string]any) ([]float64, bool) {
	list, ok := body["data"].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return nil, false
	}
	if vec, ok := toVector(first["embedding"]); ok {
		return vec, true
	}
	return toVector(first["vector"])
}

// nestedValues matches {"embedding": {"values": [...]}}, the Gemini shape.
func nestedValues(body map[string]any) ([]float64, bool) {
	obj, ok := body["embedding"].(map[string]any)
	if !ok {
		return nil, false
	}
	return toVector(obj["values"])
}

// toVector converts a decoded JSON value into a non-empty float vector.
// Every element must be a JSON number; anything else fails the shape.
func toVector(v any) ([]float64, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	vec := make([]float64, len(list))
	for i, el := range list {
		f, ok := el.(float64)
		if !ok {
			return nil, false
		}
		vec[i] = f
	}
	return vec, true
}
