package cartstore

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	carts := map[string][]LineItem{
		"empty": {},
		"single": {
			{ID: "p1", Title: "Cadeira Rivatti", ImageURL: "https://img/p1.png", Price: 1400, Quantity: 1},
		},
		"ordered": {
			{ID: "p3", Title: "Bolsa", ImageURL: "https://img/p3.png", Price: 99.9, Quantity: 4},
			{ID: "p1", Title: "Cadeira", ImageURL: "", Price: 0, Quantity: 1},
			{ID: "p2", Title: "Tênis \"run\"", ImageURL: "https://img/p2.png?w=1&h=2", Price: 0.1 + 0.2, Quantity: 12},
		},
	}

	for name, cart := range carts {
		cart := cart
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			blob, err := Encode(cart)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := Decode(blob)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(cart, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeNilCart(t *testing.T) {
	t.Parallel()

	blob, err := Encode(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if blob != "[]" {
		t.Fatalf("blob = %q, want %q", blob, "[]")
	}
}

func TestDecodeReadsOriginalClientFormat(t *testing.T) {
	t.Parallel()

	blob := `[{"id":"1","title":"Cadeira Rivatti","image_url":"https://img/1.png","price":1400,"quantity":2}]`
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []LineItem{{ID: "1", Title: "Cadeira Rivatti", ImageURL: "https://img/1.png", Price: 1400, Quantity: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeNullIsEmpty(t *testing.T) {
	t.Parallel()

	got, err := Decode("null")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty non-nil cart", got)
	}
}

func TestDecodeRejectsMalformedBlobs(t *testing.T) {
	t.Parallel()

	blobs := map[string]string{
		"not json":          `{{{`,
		"object":            `{"id":"p1"}`,
		"truncated":         `[{"id":"p1","quantity":1}`,
		"empty id":          `[{"id":"","quantity":1}]`,
		"zero quantity":     `[{"id":"p1","quantity":0}]`,
		"missing quantity":  `[{"id":"p1"}]`,
		"fraction quantity": `[{"id":"p1","quantity":1.5}]`,
		"negative price":    `[{"id":"p1","title":"t","price":-5,"quantity":1}]`,
		"duplicate id":      `[{"id":"p1","quantity":1},{"id":"p1","quantity":2}]`,
	}

	for name, blob := range blobs {
		blob := blob
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode(blob)
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("err = %v, want *DecodeError", err)
			}
		})
	}
}
