package feemill

import (
	"encoding/json"
	"testing"
)

func TestNewConditionAndParse(t *testing.T) {
	cases := map[string]struct {
		ext     string
		typ     string
		data    []byte
		wantErr bool
	}{
		"simple":      {ext: "voting", typ: "custody", data: nil},
		"with data":   {ext: "stream", typ: "rewards", data: []byte{0, 1, 2, 0xff}},
		"short ext":   {ext: "ab", typ: "custody", wantErr: true},
		"bad chars":   {ext: "VOTING", typ: "custody", wantErr: true},
		"long type":   {ext: "voting", typ: "waytoolongname", wantErr: true},
		"binary data": {ext: "auction", typ: "assets", data: []byte("\x00\x00\x00\x00\x00\x00\x00\x07")},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			c := NewCondition(tc.ext, tc.typ, tc.data)
			ext, typ, data, err := c.Parse()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parse of %q must fail", c)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %+v", err)
			}
			if ext != tc.ext || typ != tc.typ {
				t.Fatalf("got %q/%q", ext, typ)
			}
			if string(data) != string(tc.data) {
				t.Fatalf("data mangled: %X", data)
			}
		})
	}
}

func TestConditionAddress(t *testing.T) {
	a := NewCondition("voting", "custody", nil).Address()
	if err := a.Validate(); err != nil {
		t.Fatalf("invalid address: %+v", err)
	}
	if len(a) != AddressLength {
		t.Fatalf("address length %d", len(a))
	}

	// Derivation is deterministic and domain separated.
	b := NewCondition("voting", "custody", nil).Address()
	if !a.Equals(b) {
		t.Fatal("derivation must be deterministic")
	}
	c := NewCondition("auction", "custody", nil).Address()
	if a.Equals(c) {
		t.Fatal("different conditions must not collide")
	}
}

func TestAddressJSON(t *testing.T) {
	a := NewCondition("stream", "rewards", []byte{1}).Address()
	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %+v", err)
	}
	var b Address
	if err := json.Unmarshal(raw, &b); err != nil {
		t.Fatalf("unmarshal: %+v", err)
	}
	if !a.Equals(b) {
		t.Fatalf("round trip changed address: %s != %s", a, b)
	}
}
