package filters

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// engineFilters mirrors the vocabulary for structured-output requests.
// Unused filters come back as empty strings.
type engineFilters struct {
	Length       string `json:"length_uFilter" jsonschema:"description=Garment length"`
	Color        string `json:"color_uFilter" jsonschema:"description=Color"`
	Fit          string `json:"fit_uFilter" jsonschema:"description=Fit"`
	PriceRange   string `json:"sortPrice" jsonschema:"description=Inclusive price range written as [min TO max] with * for an open bound"`
	Size         string `json:"size_uFilter" jsonschema:"description=Size"`
	Category     string `json:"categoryType_uFilter" jsonschema:"description=Product category"`
	Type         string `json:"type_uFilter" jsonschema:"description=Product type"`
	Gender       string `json:"gender_uFilter" jsonschema:"description=Gender"`
	LegShape     string `json:"legShape_uFilter" jsonschema:"description=Leg shape"`
	SleeveLength string `json:"sleeveLength_uFilter" jsonschema:"description=Sleeve length"`
	Occasion     string `json:"occasion_uFilter" jsonschema:"description=Occasion"`
	Style        string `json:"styleRefinement_uFilter" jsonschema:"description=Style"`
	Rise         string `json:"rise_uFilter" jsonschema:"description=Rise"`
}

// Schema returns a strict JSON schema for the filter vocabulary: every
// property required, no additional properties.
func Schema() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	b, err := reflector.Reflect(&engineFilters{}).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}

	delete(m, "$schema")
	delete(m, "$id")
	m["additionalProperties"] = false
	if props, ok := m["properties"].(map[string]any); ok {
		required := make([]string, 0, len(props))
		for _, n := range Vocabulary {
			if _, ok := props[string(n)]; ok {
				required = append(required, string(n))
			}
		}
		m["required"] = required
	}
	return m
}
