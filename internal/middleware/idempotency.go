package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	messageIDHeader   = "X-Message-Id" // set by carrier gateways on every delivery attempt
	idempotencyPrefix = "sms:idempotency:"
	idempotencyTTL    = 24 * time.Hour
	inFlightTTL       = time.Minute
	inFlightMarker    = "in-flight"
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware makes redelivered inbound messages run at most once.
// The key is the Idempotency-Key header, or the gateway's message id when
// that is absent. The first delivery reserves the key; a redelivery while it
// is still running gets 409, and one after it finished gets the stored
// response replayed.
func IdempotencyMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			key = c.GetHeader(messageIDHeader)
		}
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyPrefix + key

		reserved, err := redisClient.SetNX(ctx, cacheKey, inFlightMarker, inFlightTTL).Result()
		if err != nil {
			// Redis error - proceed without idempotency.
			c.Next()
			return
		}

		if !reserved {
			replay(c, redisClient, cacheKey)
			return
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		// Server errors release the key so the gateway's retry runs again.
		if c.Writer.Status() >= http.StatusInternalServerError {
			_ = redisClient.Del(context.WithoutCancel(ctx), cacheKey).Err()
			return
		}

		response := cachedResponse{
			StatusCode: c.Writer.Status(),
			Body:       w.body.Bytes(),
			Headers:    extractResponseHeaders(c),
		}
		_ = setCachedResponse(context.WithoutCancel(ctx), redisClient, cacheKey, &response, idempotencyTTL)
	}
}

// replay answers a redelivery from the stored response.
func replay(c *gin.Context, client *redis.Client, key string) {
	cached, err := getCachedResponse(c.Request.Context(), client, key)
	if err != nil {
		if errors.Is(err, errInFlight) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "message is already being processed"})
			return
		}
		// Stored entry vanished or is unreadable - process again.
		c.Next()
		return
	}

	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
}

var errInFlight = errors.New("request in flight")

// getCachedResponse retrieves a cached response from Redis.
func getCachedResponse(ctx context.Context, client *redis.Client, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	if string(data) == inFlightMarker {
		return nil, errInFlight
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

// setCachedResponse stores a response in Redis.
func setCachedResponse(ctx context.Context, client *redis.Client, key string, response *cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, ttl).Err()
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	// Only cache Content-Type header.
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
