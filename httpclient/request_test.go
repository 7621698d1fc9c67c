package httpclient

import (
	"testing"
)

func TestRequest_WithHeaderCanonicalizes(t *testing.T) {
	req := Request{}.WithHeader("authorization", "Bearer a").WithHeader("AUTHORIZATION", "Bearer b")

	if len(req.Headers) != 1 {
		t.Fatalf("expected one unique header key, got %v", req.Headers)
	}
	v, ok := req.Header("Authorization")
	if !ok || v != "Bearer b" {
		t.Errorf("expected case-insensitive override, got %q", v)
	}
}

func TestRequest_WithHeaderDoesNotMutateOriginal(t *testing.T) {
	original := Request{}.WithHeader("Accept", "application/json")
	modified := original.WithHeader("Accept", "text/plain")

	if v, _ := original.Header("Accept"); v != "application/json" {
		t.Errorf("original mutated: %q", v)
	}
	if v, _ := modified.Header("Accept"); v != "text/plain" {
		t.Errorf("copy not updated: %q", v)
	}
}

func TestRequest_WithQueryPreservesOrder(t *testing.T) {
	req := Request{}.WithQuery("b", "2").WithQuery("a", "1").WithQuery("b", "3")

	want := []QueryParam{{"b", "2"}, {"a", "1"}, {"b", "3"}}
	if len(req.Query) != len(want) {
		t.Fatalf("query = %v", req.Query)
	}
	for i, p := range want {
		if req.Query[i] != p {
			t.Errorf("query[%d] = %v, want %v", i, req.Query[i], p)
		}
	}
}

func TestRequest_WithQueryDoesNotShareBacking(t *testing.T) {
	base := Request{}.WithQuery("a", "1")
	one := base.WithQuery("x", "1")
	two := base.WithQuery("y", "2")

	if one.Query[1].Key != "x" || two.Query[1].Key != "y" {
		t.Errorf("copies share backing array: %v / %v", one.Query, two.Query)
	}
	if len(base.Query) != 1 {
		t.Errorf("base mutated: %v", base.Query)
	}
}

func TestRequest_WithBody(t *testing.T) {
	req := Request{}.WithBody([]byte("payload"))
	if string(req.Body) != "payload" {
		t.Errorf("body = %q", req.Body)
	}
}

func TestResponse_Helpers(t *testing.T) {
	resp := &Response{StatusCode: 201, Headers: map[string]string{"Content-Type": "application/json"}}
	if !resp.IsSuccess() {
		t.Error("201 should be success")
	}
	if resp.Header("content-type") != "application/json" {
		t.Error("expected canonical header lookup")
	}

	resp.StatusCode = 500
	if resp.IsSuccess() {
		t.Error("500 should not be success")
	}
}
