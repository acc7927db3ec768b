package domain

import "fmt"

type (
	// TokenPair the token set returned by sign-in and refresh
	TokenPair struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}

	SignInBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	RefreshBody struct {
		RefreshToken string `json:"refreshToken"`
	}

	// ErrorReply the error envelope returned by the server
	ErrorReply struct {
		Message string `json:"message"`
	}

	// RequestReply reply of a submitted execution request
	RequestReply struct {
		ExecutionRequestID string `json:"executionRequestId"`
	}

	// UserLimits the per-user quota doc from users/limits
	UserLimits struct {
		EnabledExecutionTime bool    `json:"enabledExecutionTime"`
		UsedExecutionTime    float64 `json:"usedExecutionTime"`
		MaxExecutionTime     float64 `json:"maxExecutionTime"`

		EnabledMaxExecutions bool `json:"enabledMaxExecutions"`
		UsedExecutions       int  `json:"usedExecutions"`
		MaxExecutions        int  `json:"maxExecutions"`

		EnabledMaxTimeout bool    `json:"enabledMaxTimeout"`
		MaxTimeout        float64 `json:"maxTimeout"`
	}

	// JWTToken the OAuth2 token issued by the PlanQK gateway
	JWTToken struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
)

// ===================================
//		UserLimits Methods
// ===================================

func (l *UserLimits) ExceededExecutionTime() bool {
	return l.EnabledExecutionTime && l.UsedExecutionTime > l.MaxExecutionTime
}

func (l *UserLimits) ExceededExecutions() bool {
	return l.EnabledMaxExecutions && l.UsedExecutions > l.MaxExecutions
}

// ===================================
//		JWTToken Methods
// ===================================

func (t *JWTToken) String() string {
	return fmt.Sprintf(
		"JWT Token:\n├── access_token: %s\n├── scope: %s\n├── token_type: %s\n└── expires_in: %d",
		t.AccessToken, t.Scope, t.TokenType, t.ExpiresIn,
	)
}
