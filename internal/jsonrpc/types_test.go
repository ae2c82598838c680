package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/harper/agentwire/internal/errors"
)

func TestKindClassification(t *testing.T) {
	cases := []struct {
		name string
		data string
		want Kind
	}{
		{"request", `{"jsonrpc":"2.0","method":"thread/start","params":{},"id":1}`, KindRequest},
		{"notification", `{"jsonrpc":"2.0","method":"turn/started","params":{"threadId":"t1"}}`, KindNotification},
		{"response", `{"jsonrpc":"2.0","result":{"thread":{"id":"t1"}},"id":1}`, KindResponse},
		{"error response", `{"jsonrpc":"2.0","error":{"code":-32601,"message":"nope"},"id":7}`, KindResponse},
		{"null result response", `{"jsonrpc":"2.0","result":null,"id":3}`, KindResponse},
		{"string id request", `{"method":"item/tool/requestUserInput","params":{},"id":"srv-1"}`, KindRequest},
		{"missing version tolerated", `{"method":"turn/completed","params":{}}`, KindNotification},
		{"id with no payload", `{"jsonrpc":"2.0","id":4}`, KindInvalid},
		{"empty object", `{}`, KindInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Decode([]byte(tc.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := env.Kind(); got != tc.want {
				t.Errorf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	envelopes := []*Envelope{
		NewRequest(1, "initialize", json.RawMessage(`{"clientInfo":{"name":"agentwire"}}`)),
		NewRequest(42, "thread/list", nil),
		NewNotification("initialized", nil),
		NewNotification("turn/steer", json.RawMessage(`{"threadId":"t1"}`)),
		NewResponse(json.RawMessage(`7`), json.RawMessage(`{"decision":"accept"}`)),
		NewResponse(json.RawMessage(`"srv-9"`), json.RawMessage(`null`)),
		NewErrorResponse(json.RawMessage(`3`), &Error{Code: MethodNotFound, Message: "unknown method"}),
	}

	for _, original := range envelopes {
		data, err := Encode(original)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		if decoded.Kind() != original.Kind() {
			t.Errorf("kind changed across round trip: %v != %v", decoded.Kind(), original.Kind())
		}
		if decoded.Method != original.Method {
			t.Errorf("method changed: %q != %q", decoded.Method, original.Method)
		}
		if string(decoded.Params) != string(original.Params) {
			t.Errorf("params changed: %s != %s", decoded.Params, original.Params)
		}
		if string(decoded.Result) != string(original.Result) {
			t.Errorf("result changed: %s != %s", decoded.Result, original.Result)
		}
		if (decoded.ID == nil) != (original.ID == nil) {
			t.Fatalf("id presence changed")
		}
		if decoded.ID != nil && string(*decoded.ID) != string(*original.ID) {
			t.Errorf("id changed: %s != %s", *decoded.ID, *original.ID)
		}
		if (decoded.Error == nil) != (original.Error == nil) {
			t.Fatalf("error presence changed")
		}
		if decoded.Error != nil && (decoded.Error.Code != original.Error.Code || decoded.Error.Message != original.Error.Message) {
			t.Errorf("error changed: %+v != %+v", decoded.Error, original.Error)
		}
	}
}

func TestEncodeStampsVersion(t *testing.T) {
	data, err := Encode(&Envelope{Method: "initialized"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["jsonrpc"] != "2.0" {
		t.Errorf("expected jsonrpc 2.0 tag, got %v", m["jsonrpc"])
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, data := range []string{`[1,2,3]`, `"hello"`, `42`, `true`, ``, `   `} {
		_, err := Decode([]byte(data))
		if err == nil {
			t.Errorf("Decode(%q) should fail", data)
			continue
		}
		var malformed *apperrors.MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Errorf("Decode(%q) error should be MalformedResponseError, got %T", data, err)
		}
	}
}

func TestIDInt64(t *testing.T) {
	cases := []struct {
		raw    string
		want   int64
		wantOK bool
	}{
		{`17`, 17, true},
		{`"23"`, 23, true},
		{`"abc"`, 0, false},
		{`1.5`, 0, false},
	}

	for _, tc := range cases {
		raw := json.RawMessage(tc.raw)
		env := &Envelope{ID: &raw}
		got, ok := env.IDInt64()
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("IDInt64(%s) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}

	var noID Envelope
	if _, ok := noID.IDInt64(); ok {
		t.Error("IDInt64 on missing id should report false")
	}
}

func TestResponseEchoesIDVerbatim(t *testing.T) {
	id := json.RawMessage(`"srv-42"`)
	resp := NewResponse(id, json.RawMessage(`{}`))

	data, err := Encode(resp)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(m["id"]) != `"srv-42"` {
		t.Errorf("id not echoed verbatim: %s", m["id"])
	}
}
