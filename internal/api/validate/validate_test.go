package validate

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequired(t *testing.T) {
	if ef := Required("name", "vault-a"); ef != nil {
		t.Fatalf("unexpected error: %+v", ef)
	}
	if ef := Required("name", "   "); ef == nil || ef.Field != "name" {
		t.Fatalf("blank value must fail, got %+v", ef)
	}
}

func TestAmount(t *testing.T) {
	v, ef := Amount("grams", " 12.5 ")
	if ef != nil {
		t.Fatalf("unexpected error: %+v", ef)
	}
	if !v.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("v = %s, want 12.5", v)
	}

	for _, bad := range []string{"", "abc", "0", "-3"} {
		if _, ef := Amount("grams", bad); ef == nil {
			t.Errorf("Amount(%q) must fail", bad)
		}
	}
}

func TestErrsMessage(t *testing.T) {
	errs := Errs{
		{Field: "email", Msg: "required"},
		{Field: "grams", Msg: "must be positive"},
	}
	const want = "email: required; grams: must be positive"
	if got := errs.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
