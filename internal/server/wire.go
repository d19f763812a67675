package server

import (
	"encoding/json"
	"fmt"

	"github.com/atikulmunna/reel/internal/model"
	"github.com/atikulmunna/reel/internal/worker"
)

// Inbound message types.
const (
	typeDecompress      = "decompress"
	typeDecompressBatch = "decompress_batch"
	typeQueryCacheStats = "query_cache_stats"
	typeClearCache      = "clear_cache"
	typeSearch          = "search"
)

// inbound is the JSON shape of every client message. Byte fields travel as
// base64.
type inbound struct {
	Type  string            `json:"type"`
	ID    string            `json:"id,omitempty"`
	Name  string            `json:"name,omitempty"`
	Data  []byte            `json:"data,omitempty"`
	Files []model.NamedFile `json:"files,omitempty"`
	Text  string            `json:"text,omitempty"`
	Regex bool              `json:"regex,omitempty"`
}

func decodeRequest(b []byte) (worker.Request, error) {
	var msg inbound
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = worker.NewRequestID()
	}

	switch msg.Type {
	case typeDecompress:
		return worker.Decompress{ID: msg.ID, Name: msg.Name, Data: msg.Data}, nil
	case typeDecompressBatch:
		return worker.DecompressBatch{ID: msg.ID, Files: msg.Files}, nil
	case typeQueryCacheStats:
		return worker.QueryCacheStats{ID: msg.ID}, nil
	case typeClearCache:
		return worker.ClearCache{ID: msg.ID}, nil
	case typeSearch:
		return worker.Search{ID: msg.ID, Data: msg.Data, Text: msg.Text, Regex: msg.Regex}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// encodeEvent renders ev as a flat JSON object with a "type" field.
func encodeEvent(ev worker.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(ev.Kind())
	fields["type"] = kind
	return json.Marshal(fields)
}
