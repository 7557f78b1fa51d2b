package distributor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/merkledrop-labs/merkledrop/pkg/persistence"
)

/*
Server exposes the distribution core over HTTP for claim frontends.

Endpoints:
  GET /distribution/{id}:
    - Returns the distribution summary: root, recipient count, total amount
    - The recipient list itself is never served; only the root is public

  POST /claim/prove:
    - Request: { distributionId, address }
    - Regenerates the claimer's proof from the persisted record
    - Response: { amount, leafIndex, proof } with proof as 0x hex
    - The caller submits the proof on-chain through its own wallet

  POST /claim:
    - Same request; additionally submits the claim through the configured
      settlement client and returns the receipt

  GET /healthz:
    - Store health check

Error mapping:
  - not eligible            -> 404
  - record missing/corrupt  -> 503 (recoverable; reload distribution data)
  - proof self-check defect -> 500
  - already claimed         -> 409
Claim-time failures are never auto-retried server-side.
*/

// Server handles HTTP requests for the distributor
type Server struct {
	distributor *Distributor
	store       persistence.IDistributionStore
	httpServer  *http.Server
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewServer creates a new server instance listening on the given port.
// Requests beyond the rate limit are rejected with 429.
func NewServer(d *Distributor, store persistence.IDistributionStore, port int, logger *zap.Logger) *Server {
	s := &Server{
		distributor: d,
		store:       store,
		limiter:     rate.NewLimiter(rate.Limit(50), 100),
		logger:      logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/distribution/", s.withRateLimit(s.handleGetDistribution))
	mux.HandleFunc("/claim/prove", s.withRateLimit(s.handleProve))
	mux.HandleFunc("/claim", s.withRateLimit(s.handleClaim))
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Sugar().Infow("Claim API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
