package estimate

import (
	"context"
	"fmt"
	"log"

	"github.com/franckalain/nutrisnap/internal/ml"
	"github.com/franckalain/nutrisnap/internal/models"
)

// LookupToolName is the name the model uses to call the nutrition lookup
const LookupToolName = "searchWebForNutritionInfoTool"

// LookupFunc answers one lookup request
type LookupFunc func(ctx context.Context, req models.LookupRequest) (models.LookupResult, error)

// SimulatedLookup does not search anything. It returns a placeholder that
// names the query so the model knows the tool was consulted.
func SimulatedLookup(ctx context.Context, req models.LookupRequest) (models.LookupResult, error) {
	log.Printf("Simulated web search for: %s", req.Query)
	return models.LookupResult{
		SearchResult: fmt.Sprintf("Simulated web search for '%s': Based on general knowledge, "+
			"[specific details would be here if it were a real search]. "+
			"This tool helps refine estimates for less common items.", req.Query),
	}, nil
}

// LookupTool exposes fn to the model as the nutrition lookup tool
func LookupTool(fn LookupFunc) ml.Tool {
	return ml.Tool{
		Name: LookupToolName,
		Description: "Searches the web for nutritional information about a specific food item or ingredient. " +
			"Use this if the meal description is vague or contains items for which precise data is not readily available.",
		ParamName:        "query",
		ParamDescription: `The food item or ingredient to look up (e.g. "idli", "sambar", "100g paneer").`,
		ResultName:       "searchResult",
		Invoke: func(ctx context.Context, query string) (string, error) {
			res, err := fn(ctx, models.LookupRequest{Query: query})
			if err != nil {
				return "", err
			}
			return res.SearchResult, nil
		},
	}
}
