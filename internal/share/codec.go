package share

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// wireItem is the consumer-facing shape of an Item. Exactly one of Path and
// Text is set, chosen by the channel the batch travels on.
type wireItem struct {
	Name string  `json:"name"`
	Path string  `json:"path,omitempty"`
	Text *string `json:"text,omitempty"`
	Type Kind    `json:"type"`
}

func toWire(ch Channel, it Item) wireItem {
	w := wireItem{Name: it.Name, Type: it.Kind}
	if ch == Text {
		text := it.Payload
		w.Text = &text
	} else {
		w.Path = it.Payload
	}
	return w
}

func fromWire(w wireItem) Item {
	it := Item{Name: w.Name, Kind: w.Type}
	if w.Text != nil {
		it.Payload = *w.Text
	} else {
		it.Payload = w.Path
	}
	return it
}

// Encode serializes b for channel ch. An empty batch encodes as "[]".
func Encode(ch Channel, b Batch) ([]byte, error) {
	out := make([]wireItem, len(b))
	for i, it := range b {
		out[i] = toWire(ch, it)
	}
	return json.Marshal(out)
}

// Decode parses a serialized batch. Items carrying a "text" key decode as
// text payloads, the rest as paths.
func Decode(data []byte) (Batch, error) {
	var in []wireItem
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("share decode: %w", err)
	}
	out := make(Batch, len(in))
	for i, w := range in {
		out[i] = fromWire(w)
	}
	return out, nil
}

// AsList converts b to the structpb form used on gRPC streams.
func AsList(ch Channel, b Batch) (*structpb.ListValue, error) {
	vals := make([]any, len(b))
	for i, it := range b {
		w := toWire(ch, it)
		m := map[string]any{
			"name": w.Name,
			"type": float64(w.Type),
		}
		if w.Text != nil {
			m["text"] = *w.Text
		} else {
			m["path"] = w.Path
		}
		vals[i] = m
	}
	lv, err := structpb.NewList(vals)
	if err != nil {
		return nil, fmt.Errorf("share list: %w", err)
	}
	return lv, nil
}

// FromList is the inverse of AsList.
func FromList(lv *structpb.ListValue) (Batch, error) {
	if lv == nil {
		return Batch{}, nil
	}
	raw, err := json.Marshal(lv.AsSlice())
	if err != nil {
		return nil, fmt.Errorf("share list: %w", err)
	}
	return Decode(raw)
}
