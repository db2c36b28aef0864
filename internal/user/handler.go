package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/bmi"
	"github.com/AiCodeFutures/usermanage/internal/token"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
)

// Handler exposes HTTP endpoints for user operations.
type Handler struct {
	svc    *UserService
	issuer *token.Issuer
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, issuer *token.Issuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, issuer: issuer, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip")
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, err)
		return
	}
	users, err := h.svc.List(r.Context(), skip, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// Me returns the record of the bearer token's subject. Mount behind token middleware.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := token.Subject(r.Context())
	if !ok {
		h.writeError(w, apperr.ErrUnauthorized)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Debugw("invalid create payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Infow("user created", "id", u.ID)
	h.writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Debugw("invalid update payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	in, err := decodeUpdate(body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	u, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Infow("user updated", "id", id, "fields", len(body))
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Infow("user deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the user, an access token and the BMI summary when
// the user has measurements on record.
type LoginResponse struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
	BMI   *bmi.Plan    `json:"bmi,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(w, invalid("email and password are required"))
		return
	}
	u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		h.writeError(w, err)
		return
	}
	tok, err := h.issuer.Issue(u.ID, u.IsAdmin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, LoginResponse{User: u, Token: tok, BMI: bmi.FromUser(u)})
}

// decodeUpdate turns a raw JSON object into an UpdateInput. Keys that are
// absent stay untouched; null clears the nullable columns.
func decodeUpdate(body map[string]json.RawMessage) (UpdateInput, error) {
	in := UpdateInput{Patch: entity.NewPatch()}
	for key, raw := range body {
		isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
		var err error
		switch key {
		case entity.ColUsername, entity.ColEmail, entity.ColPassword:
			if isNull {
				return in, invalid("%s cannot be null", key)
			}
			var v string
			if err = json.Unmarshal(raw, &v); err != nil {
				break
			}
			if v == "" {
				return in, invalid("%s cannot be empty", key)
			}
			switch key {
			case entity.ColUsername:
				in.Patch.SetUsername(v)
			case entity.ColEmail:
				in.Patch.SetEmail(v)
			default:
				in.Password = &v
			}
		case entity.ColIsAdmin:
			if isNull {
				return in, invalid("%s cannot be null", key)
			}
			var v bool
			if err = json.Unmarshal(raw, &v); err == nil {
				in.Patch.SetIsAdmin(v)
			}
		case entity.ColRemark:
			var v *string
			if err = json.Unmarshal(raw, &v); err == nil {
				in.Patch.SetRemark(v)
			}
		case entity.ColHeight, entity.ColWeight:
			var v *float64
			if err = json.Unmarshal(raw, &v); err == nil {
				if key == entity.ColHeight {
					in.Patch.SetHeight(v)
				} else {
					in.Patch.SetWeight(v)
				}
			}
		case entity.ColAge:
			var v *int64
			if err = json.Unmarshal(raw, &v); err == nil {
				in.Patch.SetAge(v)
			}
		default:
			return in, invalid("unknown field %q", key)
		}
		if err != nil {
			return in, invalid("%s has the wrong type", key)
		}
	}
	return in, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id must be a positive integer")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warnw("request failed", "status", status, "err", err)
	} else {
		h.logger.Debugw("request rejected", "status", status, "err", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
