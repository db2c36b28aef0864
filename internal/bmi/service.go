package bmi

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/suggest"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
)

// UserLookup loads a stored user for plans requested by id.
type UserLookup interface {
	Get(ctx context.Context, id int64) (*entity.User, error)
}

type PlanInput struct {
	Height *float64 `json:"height" validate:"omitempty,gt=0,lt=300"`
	Weight *float64 `json:"weight" validate:"omitempty,gt=0,lt=700"`
	Age    *int64   `json:"age" validate:"omitempty,gte=0,lt=150"`
	Gender string   `json:"gender" validate:"omitempty,max=32"`
	Goal   string   `json:"goal" validate:"omitempty,max=200"`
	UserID int64    `json:"user_id" validate:"gte=0"`
}

type Plan struct {
	BMI          float64 `json:"bmi"`
	Category     string  `json:"category"`
	Suggestion   string  `json:"suggestion"`
	AISuggestion string  `json:"ai_suggestion,omitempty"`
	Note         string  `json:"note,omitempty"`
}

const noteFallback = "AI suggestion is unavailable right now; showing the basic suggestion."

type Service struct {
	users     UserLookup
	suggester suggest.Suggester
	logger    *zap.SugaredLogger
}

// NewService builds a plan service. users and suggester may be nil.
func NewService(users UserLookup, suggester suggest.Suggester, logger *zap.SugaredLogger) *Service {
	return &Service{users: users, suggester: suggester, logger: logger}
}

// Plan computes the BMI plan. Missing measurements are taken from the stored
// user when UserID is set. A failing suggester only adds a Note.
func (s *Service) Plan(ctx context.Context, in PlanInput) (*Plan, error) {
	if in.UserID > 0 && s.users != nil && (in.Height == nil || in.Weight == nil || in.Age == nil) {
		u, err := s.users.Get(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if in.Height == nil {
			in.Height = u.Height
		}
		if in.Weight == nil {
			in.Weight = u.Weight
		}
		if in.Age == nil {
			in.Age = u.Age
		}
	}
	if in.Height == nil || in.Weight == nil {
		return nil, fmt.Errorf("%w: height and weight are required", apperr.ErrValidation)
	}

	p, err := basicPlan(*in.Height, *in.Weight, in.Goal)
	if err != nil {
		return nil, err
	}
	if s.suggester == nil {
		return p, nil
	}

	text, err := s.suggester.Suggest(ctx, Prompt(in, p))
	if err != nil {
		s.logger.Warnw("ai suggestion failed", "err", err)
		p.Note = noteFallback
		return p, nil
	}
	p.AISuggestion = text
	return p, nil
}

// FromUser returns the basic plan for a stored user, or nil when the user has
// no height or weight on record.
func FromUser(u *entity.User) *Plan {
	if u == nil || u.Height == nil || u.Weight == nil {
		return nil
	}
	p, err := basicPlan(*u.Height, *u.Weight, "")
	if err != nil {
		return nil
	}
	return p
}

func basicPlan(height, weight float64, goal string) (*Plan, error) {
	v, err := Calc(height, weight)
	if err != nil {
		return nil, err
	}
	c := Category(v)
	return &Plan{BMI: v, Category: c, Suggestion: BasicSuggestion(c, goal)}, nil
}

// Prompt renders the structured prompt sent to the suggester.
func Prompt(in PlanInput, p *Plan) string {
	var b strings.Builder
	b.WriteString("Create a one-week diet and training plan for this person.\n")
	fmt.Fprintf(&b, "Height: %.1f cm\n", *in.Height)
	fmt.Fprintf(&b, "Weight: %.1f kg\n", *in.Weight)
	if in.Age != nil {
		fmt.Fprintf(&b, "Age: %d\n", *in.Age)
	}
	if g := strings.TrimSpace(in.Gender); g != "" {
		fmt.Fprintf(&b, "Gender: %s\n", g)
	}
	fmt.Fprintf(&b, "BMI: %.2f (%s)\n", p.BMI, p.Category)
	if g := strings.TrimSpace(in.Goal); g != "" {
		fmt.Fprintf(&b, "Goal: %s\n", g)
	}
	b.WriteString("Answer with short sections: Diet, Training, Notes.")
	return b.String()
}
