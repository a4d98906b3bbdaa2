package respond

import "testing"

func TestPrefersJSON(t *testing.T) {
	cases := []struct {
		name   string
		accept string
		want   bool
	}{
		{"empty header", "", false},
		{"json only", "application/json", true},
		{"html only", "text/html", false},
		{"wildcard only", "*/*", false},
		{"json over wildcard", "application/json, */*", true},
		{"html before json same q", "text/html, application/json", false},
		{"json before html same q", "application/json, text/html", true},
		{"q ordering favors json", "text/html;q=0.5, application/json;q=0.9", true},
		{"q ordering favors html", "text/html;q=0.9, application/json;q=0.5", false},
		{"json rejected by q=0", "application/json;q=0, text/html", false},
		{"everything rejected", "application/json;q=0, text/html;q=0", false},
		{"malformed q treated as rejection", "application/json;q=banana, text/html", false},
		{"specific beats wildcard at same q", "*/*;q=0.8, application/json;q=0.8", true},
		{"case-insensitive media type", "Application/JSON", true},
		{"extra params ignored", "application/json;charset=utf-8;q=0.9, text/html;q=0.5", true},
		{"whitespace tolerated", " application/json ; q=0.9 , text/html ; q=0.1 ", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := PrefersJSON(c.accept); got != c.want {
				t.Errorf("PrefersJSON(%q) = %v, want %v", c.accept, got, c.want)
			}
		})
	}
}
