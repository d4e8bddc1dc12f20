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

type bookDTO struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// CatalogClient talks to the catalog service over HTTP. A circuit breaker
// guards transport-level failures; negative business answers such as a 404
// or an empty reservation do not count against it.
type CatalogClient struct {
	baseURL string
	httpc   *http.Client
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewCatalogClient(cfg config.RemoteConfig) *CatalogClient {
	return &CatalogClient{
		baseURL: cfg.CatalogURL,
		httpc:   &http.Client{},
		breaker: circuitbreaker.New(cfg.BreakerMaxFail, cfg.BreakerTimeout),
		timeout: cfg.Timeout,
	}
}

func (c *CatalogClient) GetBook(ctx context.Context, bookID uuid.UUID) (*commands.BookSnapshot, error) {
	var dto bookDTO
	var status int
	err := c.breaker.Do(func() error {
		var sendErr error
		status, sendErr = send(ctx, c.httpc, c.timeout,
			http.MethodGet, c.endpoint("/api/books/", bookID.String()), "catalog", &dto)
		return sendErr
	})
	if err != nil {
		return nil, wrapBreakerErr(err, "catalog")
	}
	if status == http.StatusNotFound {
		return nil, infra.WrapErr("book not found in catalog", nil, infra.KindNotFound)
	}
	if status != http.StatusOK {
		return nil, infra.WrapErr("unexpected catalog response", nil, infra.KindUnavailable)
	}
	return &commands.BookSnapshot{ID: dto.ID, Title: dto.Title}, nil
}

// ReserveOne decrements the available count for a book. It reports false
// when the catalog refuses because no copies remain.
func (c *CatalogClient) ReserveOne(ctx context.Context, bookID uuid.UUID) (bool, error) {
	var status int
	err := c.breaker.Do(func() error {
		var sendErr error
		status, sendErr = send(ctx, c.httpc, c.timeout,
			http.MethodPost, c.endpoint("/api/books/", bookID.String(), "/reserve"), "catalog", nil)
		return sendErr
	})
	if err != nil {
		return false, wrapBreakerErr(err, "catalog")
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusConflict:
		return false, nil
	case http.StatusNotFound:
		return false, infra.WrapErr("book not found in catalog", nil, infra.KindNotFound)
	default:
		return false, infra.WrapErr("unexpected catalog response", nil, infra.KindUnavailable)
	}
}

// ReleaseOne returns a reserved copy. The catalog treats it as idempotent,
// so a 404 after the book was deleted is not an error worth retrying.
func (c *CatalogClient) ReleaseOne(ctx context.Context, bookID uuid.UUID) error {
	var status int
	err := c.breaker.Do(func() error {
		var sendErr error
		status, sendErr = send(ctx, c.httpc, c.timeout,
			http.MethodPost, c.endpoint("/api/books/", bookID.String(), "/release"), "catalog", nil)
		return sendErr
	})
	if err != nil {
		return wrapBreakerErr(err, "catalog")
	}
	switch status {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return infra.WrapErr("unexpected catalog response", nil, infra.KindUnavailable)
	}
}

func (c *CatalogClient) endpoint(parts ...string) string {
	path := ""
	for _, p := range parts {
		path += p
	}
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return c.baseURL + path
	}
	return u
}
