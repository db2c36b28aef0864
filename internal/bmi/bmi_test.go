package bmi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
)

func f(v float64) *float64 { return &v }
func i64(v int64) *int64   { return &v }

func TestCalc(t *testing.T) {
	v, err := Calc(170, 65)
	require.NoError(t, err)
	assert.Equal(t, 22.49, v)
	assert.Equal(t, Normal, Category(v))

	for _, in := range [][2]float64{{0, 65}, {170, 0}, {-1, 65}} {
		_, err := Calc(in[0], in[1])
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestCategory_Boundaries(t *testing.T) {
	cases := map[float64]string{
		10:    Underweight,
		18.49: Underweight,
		18.5:  Normal,
		24.89: Normal,
		24.9:  Overweight,
		25:    Overweight,
		29.89: Overweight,
		29.9:  Obese,
		45:    Obese,
	}
	for v, want := range cases {
		assert.Equal(t, want, Category(v), "bmi %v", v)
	}
}

func TestBasicSuggestion(t *testing.T) {
	assert.Equal(t, baseSuggestions[Obese], BasicSuggestion(Obese, ""))
	assert.Contains(t, BasicSuggestion(Normal, " Lose "), goalSuggestions["lose"])
	assert.Equal(t, baseSuggestions[Normal], BasicSuggestion(Normal, "run a marathon"))
	assert.NotEmpty(t, BasicSuggestion("bogus", ""))
}

type stubSuggester struct {
	text   string
	err    error
	prompt string
}

func (s *stubSuggester) Suggest(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

type stubUsers map[int64]*entity.User

func (s stubUsers) Get(_ context.Context, id int64) (*entity.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("get: %w", apperr.ErrNotFound)
}

func TestPlan_BasicOnly(t *testing.T) {
	s := NewService(nil, nil, zap.NewNop().Sugar())
	p, err := s.Plan(context.Background(), PlanInput{Height: f(170), Weight: f(65)})
	require.NoError(t, err)
	assert.Equal(t, 22.49, p.BMI)
	assert.Equal(t, Normal, p.Category)
	assert.NotEmpty(t, p.Suggestion)
	assert.Empty(t, p.AISuggestion)
	assert.Empty(t, p.Note)
}

func TestPlan_WithSuggester(t *testing.T) {
	sg := &stubSuggester{text: "eat well"}
	s := NewService(nil, sg, zap.NewNop().Sugar())
	p, err := s.Plan(context.Background(), PlanInput{Height: f(170), Weight: f(65), Age: i64(30), Gender: "female", Goal: "gain"})
	require.NoError(t, err)
	assert.Equal(t, "eat well", p.AISuggestion)
	assert.Contains(t, sg.prompt, "Age: 30")
	assert.Contains(t, sg.prompt, "Gender: female")
	assert.Contains(t, sg.prompt, "BMI: 22.49 (normal)")
	assert.Contains(t, sg.prompt, "Goal: gain")
}

func TestPlan_SuggesterFailureDegrades(t *testing.T) {
	sg := &stubSuggester{err: fmt.Errorf("%w: timeout", apperr.ErrExternalService)}
	s := NewService(nil, sg, zap.NewNop().Sugar())
	p, err := s.Plan(context.Background(), PlanInput{Height: f(170), Weight: f(80)})
	require.NoError(t, err)
	assert.Equal(t, Overweight, p.Category)
	assert.NotEmpty(t, p.Suggestion)
	assert.Empty(t, p.AISuggestion)
	assert.Equal(t, noteFallback, p.Note)
}

func TestPlan_FillsFromStoredUser(t *testing.T) {
	users := stubUsers{1: {ID: 1, Height: f(180), Weight: f(60), Age: i64(40)}}
	sg := &stubSuggester{text: "ok"}
	s := NewService(users, sg, zap.NewNop().Sugar())

	p, err := s.Plan(context.Background(), PlanInput{UserID: 1, Weight: f(81)})
	require.NoError(t, err)
	assert.Equal(t, 25.0, p.BMI)
	assert.Contains(t, sg.prompt, "Age: 40")

	_, err = s.Plan(context.Background(), PlanInput{UserID: 2})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlan_MissingMeasurements(t *testing.T) {
	s := NewService(stubUsers{1: {ID: 1}}, nil, zap.NewNop().Sugar())
	_, err := s.Plan(context.Background(), PlanInput{UserID: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Plan(context.Background(), PlanInput{Height: f(170), Weight: f(-3)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFromUser(t *testing.T) {
	assert.Nil(t, FromUser(nil))
	assert.Nil(t, FromUser(&entity.User{Height: f(170)}))
	p := FromUser(&entity.User{Height: f(170), Weight: f(65)})
	require.NotNil(t, p)
	assert.Equal(t, 22.49, p.BMI)
}

func TestHandler_Plan(t *testing.T) {
	h := NewHandler(NewService(nil, &stubSuggester{err: errors.New("down")}, zap.NewNop().Sugar()), zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	h.Plan(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bmi", strings.NewReader(`{"height":170,"weight":65,"goal":"lose"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bmi":22.49`)
	assert.Contains(t, rec.Body.String(), `"category":"normal"`)
	assert.Contains(t, rec.Body.String(), `"note"`)

	for _, body := range []string{`{"height":0,"weight":65}`, `{"height":170}`, `{"unknown":1}`, `not json`} {
		rec = httptest.NewRecorder()
		h.Plan(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bmi", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec = httptest.NewRecorder()
	h.Plan(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bmi", strings.NewReader(`{"height":170}`)))
	assert.Contains(t, rec.Body.String(), "height and weight are required")
}
