package envelope

import "testing"

func TestOkIsSuccess(t *testing.T) {
	e := Ok(map[string]string{"text": "hi"})
	if !e.Success {
		t.Fatalf("expected success envelope")
	}
	if e.Error != "" || e.Kind != "" {
		t.Fatalf("success envelope must not carry error/kind")
	}
}

func TestFailCarriesKind(t *testing.T) {
	e := Fail(KindValidation, "missing required parameter: text")
	if e.Success {
		t.Fatalf("expected failure envelope")
	}
	if e.Data != nil {
		t.Fatalf("failure envelope must not carry data")
	}
	if e.Kind != KindValidation {
		t.Fatalf("expected validation kind, got %s", e.Kind)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorKind]int{
		"":               200,
		KindValidation:   400,
		KindNotFound:     404,
		KindUnauthorized: 401,
		KindConflict:     409,
		KindUpstream:     502,
		KindTransport:    504,
		KindInternal:     500,
	}
	for kind, want := range cases {
		if got := kind.HTTPStatus(); got != want {
			t.Errorf("kind %q: got %d, want %d", kind, got, want)
		}
	}
}
