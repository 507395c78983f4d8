// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"github.com/invopop/jsonschema"

	"github.com/tombee/trailguide/internal/catalog"
)

// Step names of the trail guide chain.
const (
	StepRecommendHike = "recommend_hike"
	StepTripProfile   = "trip_profile"
	StepMatchProducts = "match_products"

	// TrailGuideName names the trail guide chain in spans and reports.
	TrailGuideName = "trail_guide_chain"
)

// HikeRecommendation is the output of the recommend_hike step.
type HikeRecommendation struct {
	HikeName    string `json:"hikeName" jsonschema:"minLength=1"`
	HikeSummary string `json:"hikeSummary" jsonschema:"minLength=1"`
}

// TripProfile is the output of the trip_profile step.
type TripProfile struct {
	TrailType       string   `json:"trailType" jsonschema:"minLength=1"`
	TypicalWeather  string   `json:"typicalWeather" jsonschema:"minLength=1"`
	RecommendedGear []string `json:"recommendedGear" jsonschema:"minItems=3,maxItems=5"`
}

// ProductMatch is the output of the match_products step.
type ProductMatch struct {
	MatchedProducts []string `json:"matchedProducts"`
}

const hikePrompt = `
You are a hiking trail guide. Based on these user preferences, recommend a specific named hiking trail:

USER PREFERENCES: {{ .preferences }}

Provide the trail name and a one-sentence summary.
Return your response in this EXACT JSON format:
{
  "hikeName": "Trail Name Here",
  "hikeSummary": "One sentence description"
}

Return ONLY valid JSON, no markdown formatting or extra text.
`

const profilePrompt = `
You are a hiking expert. For the following hike, create a detailed trip profile:

HIKE: {{ .hikeName }}

Generate a trip profile with:
- Trail type (e.g., loop, out-and-back, point-to-point)
- Typical weather conditions
- Recommended gear (list 3-5 essential items as short names like "boots", "backpack", "poles")

Return your response in this EXACT JSON format:
{
  "trailType": "loop/out-and-back/point-to-point",
  "typicalWeather": "Weather description",
  "recommendedGear": ["item1", "item2", "item3"]
}

Return ONLY valid JSON, no markdown formatting or extra text.
`

const productPrompt = `
You are a product database lookup tool. Match the following gear items with products from our database:

GEAR ITEMS TO MATCH: {{ .recommendedGear | join ", " }}

PRODUCT DATABASE:
{{ .catalog }}

Find products in the database that match the gear items. Match based on keywords and relevance.

Return your response in this EXACT JSON format:
{
  "matchedProducts": ["Product Name 1", "Product Name 2", "Product Name 3"]
}

Only include products that actually exist in the database above.
Return ONLY valid JSON, no markdown formatting or extra text.
`

var (
	hikeTemplate    = MustParsePrompt(StepRecommendHike, hikePrompt)
	profileTemplate = MustParsePrompt(StepTripProfile, profilePrompt)
	productTemplate = MustParsePrompt(StepMatchProducts, productPrompt)

	hikeDecoder    = MustJSONDecoder[HikeRecommendation](nil)
	profileDecoder = MustJSONDecoder[TripProfile](nil)
)

// TrailGuide returns the three-step trail guide chain. Matched products
// are restricted to the names in cat.
func TrailGuide(cat *catalog.Catalog) (Chain, error) {
	names := cat.Names()
	productDecoder, err := NewJSONDecoder[ProductMatch](func(s *jsonschema.Schema) {
		prop, ok := s.Properties.Get("matchedProducts")
		if !ok || prop.Items == nil {
			return
		}
		prop.Items.Enum = make([]any, len(names))
		for i, n := range names {
			prop.Items.Enum[i] = n
		}
	})
	if err != nil {
		return Chain{}, err
	}

	return Chain{
		Name: TrailGuideName,
		Steps: []Step{
			{
				Name:    StepRecommendHike,
				Prompt:  hikeTemplate,
				Inputs:  []string{"preferences"},
				Decoder: hikeDecoder,
				Export: func(out any, b Bindings) {
					hike := out.(*HikeRecommendation)
					b["hikeName"] = hike.HikeName
					b["hikeSummary"] = hike.HikeSummary
				},
			},
			{
				Name:    StepTripProfile,
				Prompt:  profileTemplate,
				Inputs:  []string{"hikeName"},
				Decoder: profileDecoder,
				Export: func(out any, b Bindings) {
					profile := out.(*TripProfile)
					b["trailType"] = profile.TrailType
					b["typicalWeather"] = profile.TypicalWeather
					b["recommendedGear"] = profile.RecommendedGear
				},
			},
			{
				Name:    StepMatchProducts,
				Prompt:  productTemplate,
				Inputs:  []string{"recommendedGear"},
				Decoder: productDecoder,
			},
		},
	}, nil
}

// TrailGuideBindings returns the initial bindings for the trail guide chain.
func TrailGuideBindings(preferences string, cat *catalog.Catalog) Bindings {
	return Bindings{
		"preferences": preferences,
		"catalog":     cat.Listing(),
	}
}
