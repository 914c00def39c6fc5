package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ray319129/czj/internal/fsstore"
)

// The catalog file is a single JSON object keyed by entry name. Go maps do
// not keep document order, so the document is decoded token by token and
// encoded entry by entry.
type document struct {
	entries []Entry
}

func (d *document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("catalog document must be a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("catalog key is not a string")
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("catalog entry %q: %w", key, err)
		}
		if e.Name == "" {
			e.Name = key
		}
		d.entries = append(d.entries, e)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (d document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// LoadFile reads the catalog file into an ordered index. A missing file
// yields an empty index without error so the bot can start before the first
// rebuild; a malformed file is reported to the caller, which should degrade
// to an empty index rather than crash.
func LoadFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewIndex(nil), nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return NewIndex(doc.entries), nil
}

func saveFile(path string, entries []Entry) error {
	return fsstore.WriteJSONAtomic(path, document{entries: entries})
}
