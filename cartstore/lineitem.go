// cartservice/cartstore/lineitem.go

package cartstore

import (
	"encoding/json"
	"fmt"
)

// LineItem is one product in the cart together with its accumulated quantity.
type LineItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Product is the catalog payload handed to AddToCart. It carries no quantity.
type Product struct {
	ID       string
	Title    string
	ImageURL string
	Price    float64
}

func (p Product) lineItem(quantity int) LineItem {
	return LineItem{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Quantity: quantity,
	}
}

// Encode serializes the cart as a JSON array. An empty cart encodes as "[]".
func Encode(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(b), nil
}

// Decode parses a blob produced by Encode. Anything that is not a JSON array of
// line items, or that breaks the cart invariants, yields a *DecodeError.
func Decode(blob string) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, &DecodeError{Err: err}
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		switch {
		case item.ID == "":
			return nil, &DecodeError{Err: fmt.Errorf("item %d: empty id", i)}
		case item.Quantity < 1:
			return nil, &DecodeError{Err: fmt.Errorf("item %q: quantity %d below 1", item.ID, item.Quantity)}
		case item.Price < 0:
			return nil, &DecodeError{Err: fmt.Errorf("item %q: negative price", item.ID)}
		}
		if _, dup := seen[item.ID]; dup {
			return nil, &DecodeError{Err: fmt.Errorf("item %q: duplicate id", item.ID)}
		}
		seen[item.ID] = struct{}{}
	}

	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
