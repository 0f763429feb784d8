package translations

import (
	"strings"
	"testing"
)

func TestFromSelector(t *testing.T) {
	cases := map[string]Language{"1": English, "2": Kinyarwanda, "3": French}
	for step, want := range cases {
		got, ok := FromSelector(step)
		if !ok || got != want {
			t.Errorf("FromSelector(%q) = %q, %v", step, got, ok)
		}
	}
	for _, bad := range []string{"", "0", "4", "01", "en"} {
		if _, ok := FromSelector(bad); ok {
			t.Errorf("FromSelector(%q) should be rejected", bad)
		}
	}
}

func TestEveryLanguageIsComplete(t *testing.T) {
	for _, lang := range []Language{English, Kinyarwanda, French} {
		s := For(lang)
		for name, v := range map[string]string{
			"welcome":  s.Welcome,
			"country":  s.EnterCountry,
			"city":     s.EnterCity,
			"district": s.EnterDistrict,
			"error":    s.Error,
			"invalid":  s.InvalidOption,
		} {
			if strings.TrimSpace(v) == "" {
				t.Errorf("%s: empty %s string", lang, name)
			}
		}
		sentence := s.Weather("Kigali, Nyarugenge, Rwanda", "clear sky", 22)
		for _, want := range []string{"Kigali, Nyarugenge, Rwanda", "clear sky", "22"} {
			if !strings.Contains(sentence, want) {
				t.Errorf("%s: weather sentence %q missing %q", lang, sentence, want)
			}
		}
	}
}

func TestForUnknownFallsBackToDefault(t *testing.T) {
	if For("de").InvalidOption != For(Default).InvalidOption {
		t.Fatal("unknown language should use the default table")
	}
}

func TestFormatTemperature(t *testing.T) {
	cases := map[float64]string{22: "22", 21.5: "21.5", -3.25: "-3.25", 0: "0"}
	for in, want := range cases {
		if got := FormatTemperature(in); got != want {
			t.Errorf("FormatTemperature(%v) = %q, want %q", in, got, want)
		}
	}
}
