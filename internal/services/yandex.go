// Yandex Music API implementation of [Source]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
)

const (
	yandexBaseURL   = "https://api.music.yandex.net"
	yandexTokenType = "OAuth"

	defaultBatchSize = 200
	defaultTimeout   = 30 * time.Second
)

// yandexEnvelope wraps every Yandex Music API response.
type yandexEnvelope[T any] struct {
	Result T            `json:"result"`
	Error  *YandexError `json:"error"`
}

// YandexError is the error object of a failed API call.
type YandexError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *YandexError) String() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// YandexAccount is the account section of /account/status.
type YandexAccount struct {
	UID   int64  `json:"uid"`
	Login string `json:"login"`
}

type accountStatus struct {
	Account YandexAccount `json:"account"`
}

type likesLibrary struct {
	Library struct {
		UID    int64            `json:"uid"`
		Tracks []models.RawLike `json:"tracks"`
	} `json:"library"`
}

// YandexService implements [Source] for a Yandex Music account.
//
// Requests carry the static account token as "Authorization: OAuth <token>" and are
// paced by a token-bucket limiter. Rate-limited and server-error responses are retried.
type YandexService struct {
	client    *resty.Client
	limiter   *rate.Limiter
	batchSize int
	uid       int64
}

// NewYandexService creates a client for the account identified by cfg.Token.
func NewYandexService(cfg shared.SourceConfig) (*YandexService, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: yandex music token (set YA_TOKEN or [source] token)", shared.ErrMissingCredentials)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = yandexBaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	token := &oauth2.Token{AccessToken: cfg.Token, TokenType: yandexTokenType}
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(token))
	httpClient.Timeout = timeout

	client := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})

	if cfg.Language != "" {
		client.SetHeader("Accept-Language", cfg.Language)
	}

	return &YandexService{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		batchSize: batchSize,
	}, nil
}

func (s *YandexService) Name() string {
	return "Yandex Music"
}

// call performs one paced request and decodes the result field of the envelope.
func call[T any](ctx context.Context, s *YandexService, method, path string, form map[string]string) (T, error) {
	var zero T

	if err := s.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	req := s.client.R().SetContext(ctx)
	if form != nil {
		req.SetFormData(form)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, path, err)
	}

	var env yandexEnvelope[T]
	decodeErr := json.Unmarshal(resp.Body(), &env)

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return zero, fmt.Errorf("%w: %s %s: status %d", shared.ErrNotAuthenticated, method, path, code)
	case resp.IsError():
		detail := ""
		if decodeErr == nil && env.Error != nil {
			detail = ": " + env.Error.String()
		}
		return zero, fmt.Errorf("%w: %s %s: status %d%s", shared.ErrAPIRequest, method, path, code, detail)
	}

	if decodeErr != nil {
		return zero, fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrAPIRequest, path, decodeErr)
	}
	if env.Error != nil {
		return zero, fmt.Errorf("%w: %s %s: %s", shared.ErrAPIRequest, method, path, env.Error)
	}

	return env.Result, nil
}

// Account returns the account the token belongs to.
func (s *YandexService) Account(ctx context.Context) (*YandexAccount, error) {
	status, err := call[accountStatus](ctx, s, http.MethodGet, "/account/status", nil)
	if err != nil {
		return nil, err
	}
	if status.Account.UID == 0 {
		return nil, fmt.Errorf("%w: token is not bound to an account", shared.ErrNotAuthenticated)
	}
	return &status.Account, nil
}

func (s *YandexService) accountUID(ctx context.Context) (int64, error) {
	if s.uid != 0 {
		return s.uid, nil
	}
	account, err := s.Account(ctx)
	if err != nil {
		return 0, err
	}
	s.uid = account.UID
	return s.uid, nil
}

// LikedTracks returns the account's liked-track events.
func (s *YandexService) LikedTracks(ctx context.Context) ([]models.RawLike, error) {
	uid, err := s.accountUID(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/users/%d/likes/tracks", uid)
	likes, err := call[likesLibrary](ctx, s, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return likes.Library.Tracks, nil
}

// Tracks fetches track details in chunks of the configured batch size.
func (s *YandexService) Tracks(ctx context.Context, ids []int64) ([]models.RawTrack, error) {
	tracks := make([]models.RawTrack, 0, len(ids))

	for start := 0; start < len(ids); start += s.batchSize {
		end := min(start+s.batchSize, len(ids))

		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}

		form := map[string]string{
			"track-ids":      strings.Join(parts, ","),
			"with-positions": "false",
		}

		chunk, err := call[[]models.RawTrack](ctx, s, http.MethodPost, "/tracks", form)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tracks %d-%d: %w", start, end, err)
		}
		tracks = append(tracks, chunk...)
	}

	return tracks, nil
}
