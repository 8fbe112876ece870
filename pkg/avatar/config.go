package avatar

import (
	"encoding/json"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

/*
ConfigStore holds the client-tunable runtime settings as one JSON document.
Paths use gjson syntax ("chat.autoReply", "model.idleMotion"), so clients
can address nested values without the server declaring a schema for them.
Client-supplied settings are the extensibility point.
*/
type ConfigStore struct {
	mu  sync.RWMutex
	doc []byte
}

func NewConfigStore(initial map[string]any) *ConfigStore {
	doc, err := json.Marshal(initial)
	if err != nil || initial == nil {
		doc = []byte(`{}`)
	}

	return &ConfigStore{doc: doc}
}

// Get returns the value at path and whether it exists.
func (c *ConfigStore) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := gjson.GetBytes(c.doc, path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Set writes value at path, creating intermediate objects as needed.
func (c *ConfigStore) Set(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := sjson.SetBytes(c.doc, path, value)
	if err != nil {
		return err
	}

	c.doc = doc
	return nil
}

// Delete removes the value at path; unknown paths are a no-op.
func (c *ConfigStore) Delete(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := sjson.DeleteBytes(c.doc, path)
	if err != nil {
		return err
	}

	c.doc = doc
	return nil
}

// Document returns the full settings document.
func (c *ConfigStore) Document() json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]byte, len(c.doc))
	copy(out, c.doc)
	return out
}
