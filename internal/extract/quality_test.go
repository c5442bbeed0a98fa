package extract

import (
	"strings"
	"testing"
)

func TestCyrillicRatioCheck(t *testing.T) {
	t.Parallel()

	garbage := CyrillicRatioCheck(0.4)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"russian text", "Техническая спецификация на поставку системы", false},
		{"kazakh letters", "Құжат айналымы жүйесін сүйемелдеу қызметтері", false},
		{"broken layer", "#$%^& 0x00 ???? ....", true},
		{"empty", "", true},
		{"whitespace only", "   \n\t  ", true},
		{"mostly latin", strings.Repeat("lorem ipsum ", 20) + "при", true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := garbage(tc.text); got != tc.want {
				t.Fatalf("garbage(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
