package mock

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const userIDKey contextKey = "userID"

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type otpRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (s *Service) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	fields := map[string][]string{}
	if req.Email == "" {
		fields["email"] = []string{"This field is required."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field is required."}
	}
	if req.Password2 != "" && req.Password2 != req.Password {
		fields["password2"] = []string{"Password fields didn't match."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	if req.Username == "" {
		req.Username = req.Email
	}
	user, err := s.createUser(&User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, req.Password)
	if errors.Is(err, errUserExists) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {err.Error()}})
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondWithPair(w, http.StatusCreated, user)
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := s.authenticateUser(req.Identifier, req.Password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	s.respondWithPair(w, http.StatusOK, user)
}

func (s *Service) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if delay := time.Duration(s.refreshDelay.Load()); delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if r.Header.Get("Authorization") != "" {
		writeDetail(w, http.StatusBadRequest, "refresh must not carry credentials")
		return
	}
	if s.failRefresh.Load() {
		writeTokenInvalid(w)
		return
	}
	userID, err := s.consumeRefresh(req.Refresh)
	if err != nil {
		writeTokenInvalid(w)
		return
	}
	user, ok := s.users.Get(userID)
	if !ok {
		writeTokenInvalid(w)
		return
	}
	pair, err := s.issuePair(user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("mock_token_rotated", slog.String("user_id", user.ID))
	writeJSON(w, http.StatusOK, pair)
}

func (s *Service) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.users.Get(currentUserID(r.Context()))
	if !ok {
		writeTokenInvalid(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.revokeRefresh(req.Refresh); err != nil {
		writeDetail(w, http.StatusBadRequest, "Token is invalid or expired")
		return
	}
	w.WriteHeader(http.StatusResetContent)
}

func (s *Service) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"phone": {"This field is required."}})
		return
	}
	s.otps.Put(req.Phone, s.otpCode)
	writeDetail(w, http.StatusOK, "OTP sent")
}

func (s *Service) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}
	code, ok := s.otps.Get(req.Phone)
	if !ok || req.OTP == "" || code != req.OTP {
		writeDetail(w, http.StatusBadRequest, "Invalid OTP")
		return
	}
	s.otps.Delete(req.Phone)
	user, err := s.userByPhone(req.Phone)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondWithPair(w, http.StatusOK, user)
}

// authenticate rejects requests without a live access token.
func (s *Service) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		userID, err := s.validateAccess(tokenStr)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
			writeTokenInvalid(w)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) respondWithPair(w http.ResponseWriter, status int, user *User) {
	pair, err := s.issuePair(user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	pair.User = user
	writeJSON(w, status, pair)
}

func currentUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeTokenInvalid(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
}
