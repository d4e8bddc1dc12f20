package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/pkg/circuitbreaker"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/usecase/commands"
)

type userDTO struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// UserClient resolves user identities from the user service.
type UserClient struct {
	baseURL string
	httpc   *http.Client
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewUserClient(cfg config.RemoteConfig) *UserClient {
	return &UserClient{
		baseURL: cfg.UserServiceURL,
		httpc:   &http.Client{},
		breaker: circuitbreaker.New(cfg.BreakerMaxFail, cfg.BreakerTimeout),
		timeout: cfg.Timeout,
	}
}

func (c *UserClient) GetUser(ctx context.Context, userID uuid.UUID) (*commands.UserSnapshot, error) {
	var dto userDTO
	var status int
	err := c.breaker.Do(func() error {
		var sendErr error
		status, sendErr = send(ctx, c.httpc, c.timeout,
			http.MethodGet, c.endpoint(userID), "user service", &dto)
		return sendErr
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "user service")
	}
	if status == http.StatusNotFound {
		return nil, infra.WrapErr("user not found", nil, infra.KindNotFound)
	}
	if status != http.StatusOK {
		return nil, infra.WrapErr("unexpected user service response", nil, infra.KindUnavailable)
	}
	return &commands.UserSnapshot{ID: dto.ID, Email: dto.Email, Name: dto.Name}, nil
}

func (c *UserClient) endpoint(userID uuid.UUID) string {
	u, err := url.JoinPath(c.baseURL, "/api/users/", userID.String())
	if err != nil {
		return c.baseURL + "/api/users/" + userID.String()
	}
	return u
}
