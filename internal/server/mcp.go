package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
)

type estimateParams struct {
	MealDescription string `json:"meal_description" description:"Description of the meal to analyze"`
}

type logMealParams struct {
	Description string `json:"description" description:"Description of the meal eaten"`
}

type getMealsParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of meals to return"`
}

// extractParams converts the request arguments into target
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	return nil
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var result *protocol.CallToolResult
	var err error

	switch request.Name {
	case "estimate_meal_nutrients":
		result, err = s.toolEstimate(r, &request)
	case "log_meal":
		result, err = s.toolLogMeal(r, &request)
	case "get_meals":
		result, err = s.toolGetMeals(&request)
	default:
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, errorMessage(err), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) toolEstimate(r *http.Request, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params estimateParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidDescription, err)
	}
	_, est, err := s.estimateMeal(r.Context(), params.MealDescription)
	if err != nil {
		return nil, err
	}
	return textResult(est)
}

func (s *Server) toolLogMeal(r *http.Request, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params logMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidDescription, err)
	}
	meal, err := s.logMeal(r.Context(), params.Description)
	if meal != nil {
		s.broadcastHistory()
	}
	if err != nil {
		return nil, err
	}
	return textResult(meal)
}

func (s *Server) toolGetMeals(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params getMealsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	return textResult(s.history(params.Limit))
}

func textResult(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
