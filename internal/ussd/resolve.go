// Package ussd implements the weather menu: a positional parser over the
// gateway's cumulative input and the terminal weather step.
package ussd

import (
	"fmt"

	"WeatherUSSD/internal/session"
	"WeatherUSSD/internal/translations"
)

// Tag is the USSD session control prefix.
type Tag string

const (
	// Continue keeps the session open for more input.
	Continue Tag = "CON"
	// End closes the session.
	End Tag = "END"
)

// Response is one reply to the gateway.
type Response struct {
	Tag  Tag
	Text string
}

// Con builds a continue response.
func Con(text string) Response { return Response{Tag: Continue, Text: text} }

// Final builds an end response.
func Final(text string) Response { return Response{Tag: End, Text: text} }

// String renders the response body exactly as the gateway expects it.
func (r Response) String() string {
	return string(r.Tag) + " " + r.Text
}

// Kind classifies a resolved step.
type Kind int

const (
	KindPrompt Kind = iota
	KindInvalid
	KindLookup
)

func (k Kind) String() string {
	switch k {
	case KindPrompt:
		return "prompt"
	case KindInvalid:
		return "invalid"
	case KindLookup:
		return "lookup"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Step is where the cumulative input leaves the menu. Response is set for
// prompts and invalid input; Location is set when a weather lookup is due.
type Step struct {
	Kind     Kind
	Lang     translations.Language
	Depth    int
	Response Response
	Location string
}

// Resolve maps the cumulative input onto a menu step. It has no side effects
// and depends only on text.
func Resolve(text string) Step {
	in := session.Parse(text)
	depth := in.Depth()

	if in.Empty() {
		return Step{
			Kind:     KindPrompt,
			Lang:     translations.Default,
			Response: Con(translations.For(translations.Default).Welcome),
		}
	}

	lang, ok := translations.FromSelector(in.Step(0))
	if !ok {
		return invalid(translations.Default, depth)
	}
	strs := translations.For(lang)

	switch depth {
	case 1:
		return Step{Kind: KindPrompt, Lang: lang, Depth: depth, Response: Con(strs.EnterCountry)}
	case 2:
		return Step{Kind: KindPrompt, Lang: lang, Depth: depth, Response: Con(strs.EnterCity)}
	case 3:
		return Step{Kind: KindPrompt, Lang: lang, Depth: depth, Response: Con(strs.EnterDistrict)}
	case 4:
		return Step{
			Kind:     KindLookup,
			Lang:     lang,
			Depth:    depth,
			Location: Location(in.Step(1), in.Step(2), in.Last()),
		}
	default:
		return invalid(lang, depth)
	}
}

func invalid(lang translations.Language, depth int) Step {
	return Step{
		Kind:     KindInvalid,
		Lang:     lang,
		Depth:    depth,
		Response: Final(translations.For(lang).InvalidOption),
	}
}

// Location joins the free-text steps the way the weather provider is queried.
func Location(country, city, district string) string {
	return fmt.Sprintf("%s, %s, %s", city, district, country)
}
