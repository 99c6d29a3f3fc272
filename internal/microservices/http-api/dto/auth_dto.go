package dto

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Data Transfer Objects for authentication requests and responses

// RegisterRequest: payload for user registration. CaptchaAnswer accepts a
// JSON number or a numeric string.
type RegisterRequest struct {
	Username      string      `json:"username"`
	Password      string      `json:"password"`
	CaptchaID     string      `json:"captchaId"`
	CaptchaAnswer json.Number `json:"captchaAnswer"`
}

// Answer returns the captcha answer truncated to an integer, or nil when it
// was not sent.
func (r RegisterRequest) Answer() *int {
	s := strings.TrimSpace(r.CaptchaAnswer.String())
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int(math.Trunc(f))
	return &v
}

// LoginRequest: payload for user login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse: response payload after register or login
type AuthResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

type MeResponse struct {
	Username string `json:"username"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// CaptchaResponse: a fresh challenge. The answer never leaves the server
// but is derivable from the id.
type CaptchaResponse struct {
	CaptchaID string `json:"captchaId"`
	Question  string `json:"question"`
}
