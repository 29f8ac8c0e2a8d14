// Package strategy derives partition keys for the admission gate. A key
// strategy decides which traffic slice a request belongs to; requests with
// the same key share one quota.
package strategy

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Policy names a key strategy.
type Policy string

const (
	// ByAddress partitions traffic by the client network address.
	ByAddress Policy = "by_address"

	// ByHeader partitions traffic by the value of a request header.
	ByHeader Policy = "by_header"
)

// DefaultHeader is the header used by ByHeader when none is configured.
const DefaultHeader = "X-Client-ID"

// unknownPart stands in for a missing address or header value. Such
// requests pool into one shared quota rather than bypassing the limit.
const unknownPart = "unknown"

// KeyStrategy turns a request into its partition key.
type KeyStrategy interface {
	// Key derives the partition key for the request. Route is included so
	// the same client gets an independent quota per route.
	Key(c *gin.Context, route string) string

	// Name returns the policy tag.
	Name() string
}

// New resolves a policy tag to a strategy. An empty tag intentionally
// disables keying and returns (nil, nil); callers treat a nil strategy as
// limiting turned off. Unknown tags fail here, at setup time.
func New(policy, header string) (KeyStrategy, error) {
	switch Policy(strings.ToLower(policy)) {
	case "":
		return nil, nil
	case ByAddress:
		return &addressStrategy{}, nil
	case ByHeader:
		if header == "" {
			header = DefaultHeader
		}
		return &headerStrategy{header: header}, nil
	default:
		return nil, &UnsupportedPolicyError{Policy: policy}
	}
}

// UnsupportedPolicyError is returned by New for a policy tag it does not
// recognize.
type UnsupportedPolicyError struct {
	Policy string
}

func (e *UnsupportedPolicyError) Error() string {
	return "Unsupported key strategy: '" + e.Policy + "'"
}

type addressStrategy struct{}

func (s *addressStrategy) Name() string {
	return string(ByAddress)
}

func (s *addressStrategy) Key(c *gin.Context, route string) string {
	addr := c.ClientIP()
	if addr == "" {
		addr = unknownPart
	}
	return "ip:" + addr + ":" + route
}

type headerStrategy struct {
	header string
}

func (s *headerStrategy) Name() string {
	return string(ByHeader)
}

func (s *headerStrategy) Key(c *gin.Context, route string) string {
	value := c.GetHeader(s.header)
	if value == "" {
		value = unknownPart
	}
	return "header:" + s.header + ":" + value + ":" + route
}
