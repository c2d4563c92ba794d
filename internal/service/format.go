package service

import (
	"fmt"

	"github.com/sakif/auth-backend/internal/model"
)

// AuthResponse is the body returned by every successful auth flow.
// It never carries the password hash or the internal user ID in the clear.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ProfileImg  string `json:"profile_img"`
	Username    string `json:"username"`
	Fullname    string `json:"fullname"`
}

// format signs a bearer token for user and builds the public response.
func (s *AuthService) format(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}

	return &AuthResponse{
		AccessToken: token,
		ProfileImg:  user.PersonalInfo.ProfileImg,
		Username:    user.PersonalInfo.Username,
		Fullname:    user.PersonalInfo.Fullname,
	}, nil
}
