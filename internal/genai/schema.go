package genai

// Schema declares the shape of the structured output requested from the
// model, following the generateContent responseSchema subset of OpenAPI.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Schema type names accepted by the API.
const (
	TypeString = "STRING"
	TypeArray  = "ARRAY"
	TypeObject = "OBJECT"
)

// recommendationSchema: a JSON array of gift suggestions.
var recommendationSchema = &Schema{
	Type: TypeArray,
	Items: &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"itemName": {
				Type:        TypeString,
				Description: "The specific name of the recommended gift item in Korean.",
			},
			"category": {
				Type:        TypeString,
				Description: "A general category for the gift (e.g., Electronics, Fashion, Hobby-related) in Korean.",
			},
			"reason": {
				Type:        TypeString,
				Description: "A brief explanation in Korean of why this gift is a good recommendation for the person, based on their profile.",
			},
		},
		Required: []string{"itemName", "category", "reason"},
	},
}

// extractionSchema: the fields readable off a business card. Interests are
// inferred from job title or industry; absent fields are omitted.
var extractionSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"name": {
			Type:        TypeString,
			Description: "The full name of the person in Korean.",
		},
		"affiliation": {
			Type:        TypeString,
			Description: "The company or organization name in Korean.",
		},
		"interests": {
			Type:        TypeArray,
			Description: "A list of inferred interests or keywords based on the card, in Korean (e.g., job title, industry).",
			Items:       &Schema{Type: TypeString},
		},
	},
	Required: []string{"name", "affiliation"},
}
