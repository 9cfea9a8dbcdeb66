// Package estimate turns a free-text meal description into a nutrient
// estimate by asking a generative model, which may call lookup tools while
// it works.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/franckalain/nutrisnap/internal/ml"
	"github.com/franckalain/nutrisnap/internal/models"
)

var (
	// ErrEmptyDescription is returned before any model call when the
	// description is blank
	ErrEmptyDescription = errors.New("meal description cannot be empty")
	// ErrModel wraps failures from the model provider
	ErrModel = errors.New("model call failed")
	// ErrInvalidOutput is returned when the model answer is absent or does
	// not match the output schema
	ErrInvalidOutput = errors.New("invalid model output")
)

// Options tunes a Service. The zero value is usable.
type Options struct {
	// Timeout bounds a single estimation; zero means no limit
	Timeout time.Duration
	// MaxToolRounds caps tool round trips; zero uses ml.DefaultMaxToolRounds
	MaxToolRounds int
	// Region selects the cuisine the nutritionist persona specializes in
	Region string
	// Tools replaces the default simulated lookup tool when non-nil
	Tools []ml.Tool
}

// Service estimates nutrients through a Model
type Service struct {
	model ml.Model
	opts  Options
}

// New creates a Service backed by model
func New(model ml.Model, opts Options) *Service {
	if opts.Region == "" {
		opts.Region = defaultRegion
	}
	if opts.Tools == nil {
		opts.Tools = []ml.Tool{LookupTool(SimulatedLookup)}
	}
	return &Service{model: model, opts: opts}
}

// Estimate returns the nutrient estimate for description. Repeated calls
// with the same input may return different numbers.
func (s *Service) Estimate(ctx context.Context, description string) (*models.NutrientEstimate, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.model.Generate(ctx, ml.Request{
		System:        systemPrompt(s.opts.Region),
		Prompt:        buildPrompt(description, s.opts.Region),
		Tools:         s.opts.Tools,
		MaxToolRounds: s.opts.MaxToolRounds,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidOutput)
	}

	est, err := parseOutput(text)
	if err != nil {
		return nil, err
	}

	log.Printf("Estimated %q in %s - Calories: %.1f, Protein: %.1fg, Carbs: %.1fg, Fat: %.1fg",
		description, time.Since(start).Round(time.Millisecond),
		est.Calories, est.Protein, est.Carbs, est.Fat)
	return est, nil
}
