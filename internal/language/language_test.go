package language

import (
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// 2-letter codes pass through
		{"en", "en"},
		{"PT", "pt"},
		// 3-letter codes convert
		{"eng", "en"},
		{"por", "pt"},
		{"fre", "fr"},
		{"ger", "de"},
		{"dut", "nl"},
		{"chi", "zh"},
		// Word forms
		{"english", "en"},
		{"Português", "pt"},
		{"mandarin", "zh"},
		// Unknown 2-letter passes through
		{"xy", "xy"},
		// Unknown longer input returns empty
		{"klingon", ""},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"pt":  "Portuguese",
		"jpn": "Japanese",
		"":    "Unknown",
		"xx":  "XX",
	}
	for input, want := range cases {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "portuguese", text: "Olá, bom dia! Isto é um teste de gravação. Muito obrigado.", want: "pt"},
		{name: "english", text: "Good morning, this is a test recording. Thank you!", want: "en"},
		{name: "german", text: "Guten Morgen, das ist ein Test. Danke schön.", want: "de"},
		{name: "romanized japanese", text: "konnichiwa, arigatou gozaimasu", want: "ja"},
		{name: "nothing recognizable", text: "zzz qqq", want: ""},
		{name: "empty", text: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score := Detect(tt.text)
			if got != tt.want {
				t.Fatalf("Detect(%q) = %q (score %d), want %q; scores=%v", tt.text, got, score, tt.want, Score(tt.text))
			}
			if tt.want == "" && score != 0 {
				t.Fatalf("expected zero score, got %d", score)
			}
		})
	}
}

func TestDetectTieGoesToEarlierLanguage(t *testing.T) {
	// "de nada" scores once for both Portuguese and Spanish.
	got, score := Detect("de nada")
	if got != "pt" || score != 1 {
		t.Fatalf("Detect tie = %q/%d, want pt/1", got, score)
	}
}

func TestRoutingLanguagesOrder(t *testing.T) {
	got := RoutingLanguages()
	want := []string{"pt", "es", "en", "fr", "de", "it", "nl", "ru", "zh", "ja"}
	if len(got) != len(want) {
		t.Fatalf("RoutingLanguages() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RoutingLanguages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
