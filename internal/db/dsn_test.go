package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"url form untouched", "postgres://u:p@h:5432/orcamentos?sslmode=disable", "postgres://u:p@h:5432/orcamentos?sslmode=disable"},
		{"quotes trimmed", `"postgres://u:p@h/db"`, "postgres://u:p@h/db"},
		{"kv gets sslmode", "host=localhost user=postgres dbname=orcamentos", "host=localhost user=postgres dbname=orcamentos sslmode=disable"},
		{"kv spaces collapsed", "host=localhost   dbname=orcamentos  sslmode=require", "host=localhost dbname=orcamentos sslmode=require"},
		{"garbage untouched", "whatever", "whatever"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeDSN(tc.in); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("host=h password=secret dbname=d"); got != "host=h password=*** dbname=d" {
		t.Fatalf("kv mask: %q", got)
	}
	if got := MaskDSN("postgres://user:secret@h:5432/db"); got != "postgres://user:***@h:5432/db" {
		t.Fatalf("url mask: %q", got)
	}
}
