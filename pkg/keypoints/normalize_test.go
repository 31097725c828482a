package keypoints

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Key Point.  ", "key point"},
		{"key point", "key point"},
		{"  Spaced\t\tout\nwords  ", "spaced out words"},
		{"Trailing bullets -*_•. ", "trailing bullets"},
		{"Ends with ellipsis...", "ends with ellipsis"},
		{"Keeps inner. punctuation!", "keeps inner. punctuation!"},
		{"Question?", "question?"},
		{"- leading dash stays", "- leading dash stays"},
		{"...", ""},
		{"ÉNERGIE Cinétique", "énergie cinétique"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"Key Point.  ",
		"A  b\tC\n\n- * _ • .",
		"Remember that photosynthesis converts light energy into chemical energy stored in glucose.",
		"ΟΔΟΣ.",
		"x . - . y .-",
		" non-breaking space .",
	}

	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalize_CaseAndWhitespaceInsensitive(t *testing.T) {
	if Normalize("Key Point.  ") != Normalize("key point") {
		t.Fatalf("expected %q and %q to normalize equally", "Key Point.  ", "key point")
	}
	if Normalize("THE   Derivative\nmeasures change.") != Normalize("the derivative measures change") {
		t.Fatal("expected case and whitespace differences to vanish")
	}
}
