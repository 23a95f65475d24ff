package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/events"
	"vigri-presale/internal/observability"
	"vigri-presale/internal/presale"
	"vigri-presale/internal/solana"
	"vigri-presale/internal/storage"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// API-level error codes, in addition to presale.Code values.
const (
	CodeBadRequest       = "BadRequest"
	CodeInvalidSignature = "InvalidSignature"
	CodeNotFound         = "NotFound"
)

// Analytics answers aggregate queries over the mint log.
type Analytics interface {
	CountByTier(ctx context.Context) (map[domain.TierID]map[domain.MintPath]uint64, error)
}

// Server routes HTTP requests to a presale.Service.
type Server struct {
	svc       *presale.Service
	events    http.Handler
	analytics Analytics
	log       *zap.Logger
	maxSkew   time.Duration
	now       func() time.Time
	started   time.Time
	mux       *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithEventStream mounts h at GET /v1/events.
func WithEventStream(h http.Handler) Option {
	return func(s *Server) { s.events = h }
}

// WithAnalytics enables GET /v1/stats.
func WithAnalytics(a Analytics) Option {
	return func(s *Server) { s.analytics = a }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMaxSkew sets the accepted signature timestamp drift.
func WithMaxSkew(d time.Duration) Option {
	return func(s *Server) { s.maxSkew = d }
}

// WithClock sets the time source used for signature checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a Server for svc.
func NewServer(svc *presale.Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		log:     zap.NewNop(),
		maxSkew: DefaultMaxSkew,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.handle("POST /v1/initialize", s.signed(s.handleInitialize))
	s.handle("GET /v1/config", s.handleGetConfig)
	s.handle("POST /v1/config", s.signed(s.handleUpdateConfig))
	s.handle("POST /v1/mint", s.signed(s.handleMint))
	s.handle("POST /v1/admin-mint", s.signed(s.handleAdminMint))
	s.handle("POST /v1/mint-ws20", s.signed(s.handleMintSoulbound))
	s.handle("POST /v1/airdrop", s.signed(s.handleAirdrop))
	s.handle("GET /v1/balances/{owner}", s.handleBalance)
	s.handle("GET /v1/tokens", s.handleTokens)
	s.handle("GET /v1/metadata/{mint}", s.handleMetadata)
	s.handle("GET /v1/tiers/{tier}/events", s.handleTierEvents)
	s.handle("GET /status", s.handleStatus)
	if s.analytics != nil {
		s.handle("GET /v1/stats", s.handleStats)
	}

	// Health check
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	s.mux.Handle("GET /metrics", observability.Handler())

	// The stream hijacks the connection, so it is not wrapped.
	if s.events != nil {
		s.mux.Handle("GET /v1/events", s.events)
	}
}

// handle registers h and counts responses per route.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		observability.RecordHTTPRequest(pattern, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// signedHandler receives the authenticated caller and the raw body.
type signedHandler func(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte)

func (s *Server) signed(h signedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read body")
			return
		}

		caller, nonce, err := verifySignature(r.Header, body, s.now(), s.maxSkew)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, CodeInvalidSignature, err.Error())
			return
		}
		r = r.WithContext(presale.WithRequestNonce(r.Context(), caller, nonce))
		h(w, r, caller, body)
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte) {
	var req InitializeRequest
	if !s.decode(w, body, &req) {
		return
	}

	admin := caller
	if req.Admin != nil {
		admin = *req.Admin
	}

	cfg, err := s.svc.Initialize(r.Context(), admin, req.CollectionMint, req.PaymentMint)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newConfigView(cfg))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.Config(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newConfigView(cfg))
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte) {
	var patch presale.ConfigPatch
	if !s.decode(w, body, &patch) {
		return
	}

	cfg, err := s.svc.UpdateConfig(r.Context(), caller, patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newConfigView(cfg))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte) {
	var req MintRequest
	if !s.decode(w, body, &req) {
		return
	}

	res, err := s.svc.Mint(r.Context(), presale.MintRequest{
		Buyer:        caller,
		TierID:       domain.TierID(req.TierID),
		DesignChoice: req.DesignChoice,
		KYCProof:     req.KYCProof,
		InviteProof:  req.InviteProof,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newMintResponse(res))
}

func (s *Server) handleAdminMint(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte) {
	var req AdminMintRequest
	if !s.decode(w, body, &req) {
		return
	}

	res, err := s.svc.AdminMint(r.Context(), presale.AdminMintRequest{
		Caller:       caller,
		TierID:       domain.TierID(req.TierID),
		Recipient:    req.Recipient,
		DesignChoice: req.DesignChoice,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newMintResponse(res))
}

func (s *Server) handleMintSoulbound(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte) {
	var req SoulboundRequest
	if !s.decode(w, body, &req) {
		return
	}

	if err := s.svc.MintSoulbound(r.Context(), caller, req.InviteProof); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request, caller solana.PublicKey, body []byte) {
	var req AirdropRequest
	if !s.decode(w, body, &req) {
		return
	}

	if err := s.svc.Credit(r.Context(), caller, req.Owner, req.Lamports); err != nil {
		s.writeServiceError(w, err)
		return
	}

	bal, err := s.svc.Balance(r.Context(), req.Owner)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BalanceResponse{Owner: req.Owner, Lamports: bal})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.pathKey(w, r.PathValue("owner"))
	if !ok {
		return
	}

	bal, err := s.svc.Balance(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BalanceResponse{Owner: owner, Lamports: bal})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.pathKey(w, r.URL.Query().Get("owner"))
	if !ok {
		return
	}

	tokens, err := s.svc.TokensByOwner(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]TokenView, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, newTokenView(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	mint, ok := s.pathKey(w, r.PathValue("mint"))
	if !ok {
		return
	}

	m, err := s.svc.Metadata(r.Context(), mint)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newMetadataView(m))
}

func (s *Server) handleTierEvents(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(r.PathValue("tier"), 10, 8)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, "tier must be a number")
		return
	}

	evts, err := s.svc.EventsByTier(r.Context(), domain.TierID(n))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]events.Message, 0, len(evts))
	for _, e := range evts {
		out = append(out, events.NewMessage(e))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.analytics.CountByTier(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]TierStats, 0, len(counts))
	for id := domain.TierID(0); id < domain.TierCount; id++ {
		byPath, ok := counts[id]
		if !ok {
			continue
		}
		out = append(out, TierStats{
			TierID: uint8(id),
			Slug:   id.Slug(),
			Public: byPath[domain.MintPathPublic],
			Admin:  byPath[domain.MintPathAdmin],
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "running",
		Uptime:        s.now().Sub(s.started).String(),
		ConfigAddress: s.svc.ConfigAddress(),
	})
}

func (s *Server) decode(w http.ResponseWriter, body []byte, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) pathKey(w http.ResponseWriter, raw string) (solana.PublicKey, bool) {
	pk, err := solana.ParsePublicKey(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid public key %q", raw))
		return solana.PublicKey{}, false
	}
	return pk, true
}

// statusFor maps a service error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case presale.CodeUnauthorized:
		return http.StatusForbidden
	case presale.CodeTierSoldOut, presale.CodeAlreadyInitialized, presale.CodeConflict, presale.CodeReplayedRequest:
		return http.StatusConflict
	case presale.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, CodeNotFound, "not found")
		return
	}

	code := presale.Code(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	s.writeError(w, status, code, msg)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", zap.Error(err))
	}
}
