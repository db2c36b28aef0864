// Package bmi computes body mass index plans with an optional generated
// suggestion on top of the templated one.
package bmi

import (
	"fmt"
	"math"
	"strings"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
)

const (
	Underweight = "underweight"
	Normal      = "normal"
	Overweight  = "overweight"
	Obese       = "obese"
)

// Upper bounds (exclusive) of each category; anything above the last is Obese.
var thresholds = []struct {
	below    float64
	category string
}{
	{18.5, Underweight},
	{24.9, Normal},
	{29.9, Overweight},
}

// Calc returns weight / (height in meters)^2 rounded to two decimals.
func Calc(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 || math.IsNaN(heightCm) || math.IsNaN(weightKg) {
		return 0, fmt.Errorf("%w: height and weight must be positive", apperr.ErrValidation)
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*100) / 100, nil
}

func Category(bmi float64) string {
	for _, t := range thresholds {
		if bmi < t.below {
			return t.category
		}
	}
	return Obese
}

var baseSuggestions = map[string]string{
	Underweight: "Increase nutrient-dense calories and add moderate strength training.",
	Normal:      "Keep your current healthy routine of balanced meals and regular activity.",
	Overweight:  "Control portions and add regular aerobic exercise.",
	Obese:       "Consult a doctor or dietitian to build a supervised weight-loss plan.",
}

var goalSuggestions = map[string]string{
	"lose":     "Aim for a modest daily calorie deficit and 150+ minutes of cardio per week.",
	"gain":     "Eat in a slight calorie surplus with enough protein and train progressively.",
	"maintain": "Keep calories steady and mix strength and cardio sessions each week.",
}

// BasicSuggestion is the templated suggestion for category, refined by goal
// when the goal is one of lose, gain or maintain.
func BasicSuggestion(category, goal string) string {
	s, ok := baseSuggestions[category]
	if !ok {
		return "Enter a valid height and weight."
	}
	if g, ok := goalSuggestions[strings.ToLower(strings.TrimSpace(goal))]; ok {
		s += " " + g
	}
	return s
}
