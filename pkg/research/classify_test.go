package research

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantReason string
		wantStatus int
	}{
		{
			name:       "forbidden",
			err:        errors.New("fetch returned HTTP 403: Forbidden"),
			wantType:   ClassPermanentBlock,
			wantReason: "HTTP 403 Forbidden",
			wantStatus: 403,
		},
		{
			name:       "unauthorized with status prefix",
			err:        errors.New("request failed with status 401"),
			wantType:   ClassPermanentBlock,
			wantReason: "HTTP 401 Unauthorized",
			wantStatus: 401,
		},
		{
			name:       "rate limited with code prefix",
			err:        errors.New("upstream error, code: 429"),
			wantType:   ClassPermanentBlock,
			wantReason: "HTTP 429 Rate Limited",
			wantStatus: 429,
		},
		{
			name:     "server error is not a block",
			err:      errors.New("fetch returned HTTP 500: Internal Server Error"),
			wantType: ClassContinue,
		},
		{
			name:     "not found is not a block",
			err:      errors.New("fetch returned HTTP 404: Not Found"),
			wantType: ClassContinue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.wantType, got.Type)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, got.Reason)
			}
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestClassifySessionBlocks(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{"generic timeout", errors.New("connection timed out"), "Network timeout"},
		{"context timeout", errors.New("context deadline exceeded (timeout)"), "Network timeout"},
		{"per-fetch deadline", fmt.Errorf("individual fetch timeout after 2m0s: %w", errors.New("context deadline exceeded")), "Fetch timeout"},
		{"dns enotfound", errors.New("dial tcp: lookup example.com: ENOTFOUND"), "DNS resolution failed"},
		{"dns getaddrinfo", errors.New("getaddrinfo failed for host"), "DNS resolution failed"},
		{"connection refused", errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), "Connection refused"},
		{"econnrefused", errors.New("ECONNREFUSED"), "Connection refused"},
		{"connection reset", errors.New("read tcp: connection reset by peer"), "Connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, ClassSessionBlock, got.Type)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Zero(t, got.HTTPStatus)
		})
	}
}

// The per-fetch deadline message contains the word "timeout" twice; it must
// still classify with its own reason rather than the generic network one.
func TestClassifyFetchTimeoutPrecedence(t *testing.T) {
	got := Classify(errors.New("individual fetch timeout after 120s"))
	assert.Equal(t, ClassSessionBlock, got.Type)
	assert.Equal(t, "Fetch timeout", got.Reason)
}

func TestClassifyContinue(t *testing.T) {
	for _, err := range []error{
		nil,
		errors.New("unexpected token in response body"),
		errors.New("tls: handshake failure"),
		errors.New("content type image/png is not supported"),
	} {
		got := Classify(err)
		assert.Equal(t, ClassContinue, got.Type, "error: %v", err)
		assert.Equal(t, "Non-blocking error", got.Reason)
	}
}
