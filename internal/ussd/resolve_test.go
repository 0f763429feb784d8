package ussd

import (
	"testing"

	"WeatherUSSD/internal/translations"
)

func TestResolve(t *testing.T) {
	en := translations.For(translations.English)
	rw := translations.For(translations.Kinyarwanda)
	fr := translations.For(translations.French)

	tests := []struct {
		name string
		text string
		kind Kind
		lang translations.Language
		want string
	}{
		{"empty input welcomes", "", KindPrompt, translations.English, "CON " + en.Welcome},
		{"english country", "1", KindPrompt, translations.English, "CON " + en.EnterCountry},
		{"kinyarwanda country", "2", KindPrompt, translations.Kinyarwanda, "CON " + rw.EnterCountry},
		{"french country", "3", KindPrompt, translations.French, "CON " + fr.EnterCountry},
		{"city prompt", "1*Rwanda", KindPrompt, translations.English, "CON " + en.EnterCity},
		{"district prompt", "3*Rwanda*Kigali", KindPrompt, translations.French, "CON " + fr.EnterDistrict},
		{"free text is not validated", "2*  *!!", KindPrompt, translations.Kinyarwanda, "CON " + rw.EnterDistrict},
		{"unknown selector", "4", KindInvalid, translations.English, "END " + en.InvalidOption},
		{"non numeric selector", "en", KindInvalid, translations.English, "END " + en.InvalidOption},
		{"bad selector with more steps", "9*Rwanda*Kigali", KindInvalid, translations.English, "END " + en.InvalidOption},
		{"too deep", "1*Rwanda*Kigali*Nyarugenge*extra", KindInvalid, translations.English, "END " + en.InvalidOption},
		{"too deep in french", "3*a*b*c*d*e", KindInvalid, translations.French, "END " + fr.InvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := Resolve(tt.text)
			if step.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", step.Kind, tt.kind)
			}
			if step.Lang != tt.lang {
				t.Fatalf("lang = %s, want %s", step.Lang, tt.lang)
			}
			if got := step.Response.String(); got != tt.want {
				t.Fatalf("response = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_Lookup(t *testing.T) {
	step := Resolve("1*Rwanda*Kigali*Nyarugenge")
	if step.Kind != KindLookup {
		t.Fatalf("kind = %v", step.Kind)
	}
	if step.Location != "Kigali, Nyarugenge, Rwanda" {
		t.Fatalf("location = %q", step.Location)
	}
	if step.Depth != 4 || step.Lang != translations.English {
		t.Fatalf("step = %+v", step)
	}
}

func TestResolve_LanguageComesFromFirstStepOnly(t *testing.T) {
	first := Resolve("1*Rwanda")
	second := Resolve("3*Rwanda")
	if first.Lang != translations.English || second.Lang != translations.French {
		t.Fatalf("langs = %s, %s", first.Lang, second.Lang)
	}
	if first.Response == second.Response {
		t.Fatal("expected different prompts after changing the selector")
	}
}

func TestResponseString(t *testing.T) {
	if got := Con("Enter your city:").String(); got != "CON Enter your city:" {
		t.Fatalf("got %q", got)
	}
	if got := Final("bye").String(); got != "END bye" {
		t.Fatalf("got %q", got)
	}
}
