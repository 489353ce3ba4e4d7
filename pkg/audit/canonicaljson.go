package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// KV is one field of an ordered record. Payloads and reconstructed
// payloadRecords are built from slices of KV rather than maps because
// Go maps do not preserve insertion order, and the chain hash depends on
// it (spec §4.2 step 5: "preserves insertion order of keys (NOT by
// sorted keys)").
type KV struct {
	Key   string
	Value any
}

// Payload is an ordered set of caller-supplied fields for one audit
// entry, e.g. audit.Payload{{"fileName", name}, {"sha256", hash}}.
type Payload []KV

// canonicalJSON serializes pairs as a JSON object in exactly the given
// key order, with no re-ordering or pretty-printing. This is the
// serialization both Append and the Verifier must agree on bit-for-bit.
func canonicalJSON(pairs []KV) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(kv.Key)
		if err != nil {
			return "", fmt.Errorf("marshal key %q: %w", kv.Key, err)
		}
		valJSON, err := json.Marshal(kv.Value)
		if err != nil {
			return "", fmt.Errorf("marshal value for key %q: %w", kv.Key, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// mergeOrdered combines base (fixed audit metadata, in order) with
// extra (caller-supplied payload, in order): a key already present in
// base keeps its position but takes extra's value; a new key is
// appended at the end in extra's order. This implements spec §4.2 step
// 4's "spread order places audit metadata first ... ties prefer the
// caller's value."
func mergeOrdered(base []KV, extra []KV) []KV {
	out := make([]KV, len(base))
	copy(out, base)
	index := make(map[string]int, len(base))
	for i, kv := range base {
		index[kv.Key] = i
	}
	for _, kv := range extra {
		if i, ok := index[kv.Key]; ok {
			out[i].Value = kv.Value
			continue
		}
		index[kv.Key] = len(out)
		out = append(out, kv)
	}
	return out
}

// payloadToJSONObject marshals payload alone (no metadata) preserving
// its given order, for storage in the payload_json column.
func payloadToJSONObject(payload Payload) (json.RawMessage, error) {
	s, err := canonicalJSON([]KV(payload))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(s), nil
}

// decodeOrdered reads a JSON object's top-level fields back out in the
// order they appear in the source bytes. encoding/json's normal decode
// into map[string]any would lose that order, which the Verifier needs
// to reconstruct the original canonical serialization.
func decodeOrdered(raw json.RawMessage) ([]KV, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode object start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}
	var out []KV
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key")
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("decode value for key %q: %w", key, err)
		}
		out = append(out, KV{Key: key, Value: val})
	}
	return out, nil
}
