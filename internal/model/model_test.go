package model

import "testing"

func TestValidateSQLiteHeader(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"magic plus one byte", append([]byte(SQLiteMagic), 0), true},
		{"missing trailing NUL", []byte("SQLite format 3"), false},
		{"exactly 16 bytes, nothing after", []byte(SQLiteMagic), false},
		{"empty", nil, false},
		{"wrong magic", []byte("not a database file"), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ValidateSQLiteHeader(c.data); got != c.want {
				t.Errorf("ValidateSQLiteHeader(%q) = %v, want %v", c.data, got, c.want)
			}
		})
	}
}
