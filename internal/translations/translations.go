// Package translations holds the fixed menu strings for every supported language.
package translations

import (
	"fmt"
	"strconv"
)

// Language is a menu language code.
type Language string

const (
	English     Language = "en"
	Kinyarwanda Language = "rw"
	French      Language = "fr"

	Default = English
)

var selectors = map[string]Language{
	"1": English,
	"2": Kinyarwanda,
	"3": French,
}

// FromSelector maps the first menu step onto a language.
func FromSelector(step string) (Language, bool) {
	lang, ok := selectors[step]
	return lang, ok
}

// Strings is the prompt table for one language.
type Strings struct {
	Welcome       string
	EnterCountry  string
	EnterCity     string
	EnterDistrict string
	Error         string
	InvalidOption string

	weather string
}

// Weather formats the terminal forecast sentence.
func (s Strings) Weather(location, description string, temperature float64) string {
	return fmt.Sprintf(s.weather, location, description, FormatTemperature(temperature))
}

// FormatTemperature renders a temperature without trailing zeros: 22 -> "22", 21.5 -> "21.5".
func FormatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

const welcome = "Welcome to the Weather Service\n1. English\n2. Kinyarwanda\n3. Français"

var table = map[Language]Strings{
	English: {
		Welcome:       welcome,
		EnterCountry:  "Enter your country:",
		EnterCity:     "Enter your city:",
		EnterDistrict: "Enter your district:",
		Error:         "Sorry, we could not get the weather for",
		InvalidOption: "Invalid option. Please try again.",
		weather:       "The weather in %s is %s with a temperature of %s°C.",
	},
	Kinyarwanda: {
		Welcome:       welcome,
		EnterCountry:  "Andika igihugu cyawe:",
		EnterCity:     "Andika umujyi wawe:",
		EnterDistrict: "Andika akarere kawe:",
		Error:         "Twababariye, ntitwabashije kubona iteganyagihe rya",
		InvalidOption: "Ihitamo ritemewe. Ongera ugerageze.",
		weather:       "Iteganyagihe i %s: %s, ubushyuhe bwa %s°C.",
	},
	French: {
		Welcome:       welcome,
		EnterCountry:  "Entrez votre pays :",
		EnterCity:     "Entrez votre ville :",
		EnterDistrict: "Entrez votre district :",
		Error:         "Désolé, impossible d'obtenir la météo pour",
		InvalidOption: "Option invalide. Veuillez réessayer.",
		weather:       "La météo à %s est %s avec une température de %s°C.",
	},
}

// For returns the table for lang, falling back to Default for unknown codes.
func For(lang Language) Strings {
	if s, ok := table[lang]; ok {
		return s
	}
	return table[Default]
}
