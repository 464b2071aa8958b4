package skill

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/time/rate"
)

// NewServer registers s as the only tool of a new MCP server.
func NewServer(s *Skill, version string) (*mcp.Server, error) {
	in, err := InputSchema()
	if err != nil {
		return nil, err
	}
	out, err := OutputSchema()
	if err != nil {
		return nil, err
	}

	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:         Name,
		Description:  s.Description(),
		InputSchema:  in,
		OutputSchema: out,
	}, s.handle)
	return server, nil
}

func (s *Skill) handle(ctx context.Context, _ *mcp.CallToolRequest, in Input) (*mcp.CallToolResult, Output, error) {
	out, err := s.Execute(ctx, in)
	if err != nil {
		return nil, Output{}, err
	}
	return nil, out, nil
}

// HTTPOptions configures the streamable HTTP transport.
type HTTPOptions struct {
	AuthToken  string
	RatePerMin int
}

// NewHTTPHandler serves server over MCP streamable HTTP, behind bearer-token
// auth (skipped when AuthToken is empty) and a process-wide rate limit.
func NewHTTPHandler(server *mcp.Server, opts HTTPOptions) http.Handler {
	var h http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	if opts.RatePerMin > 0 {
		h = RateLimit(rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMin)), opts.RatePerMin), h)
	}
	return BearerAuth(opts.AuthToken, h)
}

// BearerAuth rejects requests whose Authorization header does not carry token.
func BearerAuth(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(provided) == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if strings.TrimSpace(provided) != token {
			http.Error(w, "invalid bearer token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
