package storage

import (
	"context"
	"encoding/json"

	"github.com/ivlev/marionette/internal/document"
)

// Keys of the blobs the editor keeps, same names the web editor used in local storage
const (
	HistoryKey   = "data"
	ClipboardKey = "clipboard"
)

// HistoryStore persists the editor's undo log as one JSON blob
type HistoryStore struct {
	kv *Store
}

// NewHistoryStore stores history under HistoryKey
func NewHistoryStore(kv *Store) *HistoryStore {
	return &HistoryStore{kv: kv}
}

// Load returns nil when nothing was saved yet. Parsing errors are returned
// as document.ErrDocumentFormat for the caller to degrade on.
func (h *HistoryStore) Load(ctx context.Context) (*document.History, error) {
	data, ok, err := h.kv.Get(ctx, HistoryKey)
	if err != nil || !ok {
		return nil, err
	}
	parsed, err := document.ParseHistory([]byte(data))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Save overwrites the stored history
func (h *HistoryStore) Save(ctx context.Context, hist document.History) error {
	data, err := json.Marshal(hist)
	if err != nil {
		return err
	}
	return h.kv.Put(ctx, HistoryKey, string(data))
}

// ClipboardTransport keeps the clipboard payload in the store
type ClipboardTransport struct {
	kv *Store
}

// NewClipboardTransport stores the clipboard under ClipboardKey
func NewClipboardTransport(kv *Store) *ClipboardTransport {
	return &ClipboardTransport{kv: kv}
}

func (c *ClipboardTransport) Read(ctx context.Context) (string, error) {
	data, _, err := c.kv.Get(ctx, ClipboardKey)
	return data, err
}

func (c *ClipboardTransport) Write(ctx context.Context, data string) error {
	return c.kv.Put(ctx, ClipboardKey, data)
}
