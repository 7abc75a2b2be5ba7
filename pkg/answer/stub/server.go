// Package stub provides a canned answering service that speaks the same
// POST /query contract as the real backend. It backs the serve-stub command
// and the HTTP tests of the client packages.
package stub

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Mode selects how the stub misbehaves.
type Mode string

const (
	ModeNormal      Mode = "normal"
	ModeEmptyAnswer Mode = "empty"
	ModeMalformed   Mode = "malformed"
	ModeStatus      Mode = "status"
)

// Server answers queries from a fixed table.
type Server struct {
	mu       sync.Mutex
	answers  map[string]string
	fallback string
	mode     Mode
	status   int
	latency  time.Duration
	received []string
	logger   zerolog.Logger
}

type Option func(*Server)

// WithAnswer registers a canned answer. Matching ignores case and surrounding whitespace.
func WithAnswer(question, answer string) Option {
	return func(s *Server) { s.answers[normalize(question)] = answer }
}

// WithFallback sets the answer for unknown questions. Empty means omit the answer field.
func WithFallback(answer string) Option {
	return func(s *Server) { s.fallback = answer }
}

func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func New(options ...Option) *Server {
	s := &Server{
		answers: map[string]string{},
		mode:    ModeNormal,
		status:  http.StatusInternalServerError,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewCompliance returns a stub preloaded with answers for the default suggested prompts.
func NewCompliance(options ...Option) *Server {
	base := []Option{
		WithAnswer("What is KYC in crypto compliance?",
			"**KYC** (Know Your Customer) is the process of verifying a customer's identity before and during a business relationship."),
		WithAnswer("Explain AML in crypto.",
			"**AML** (Anti-Money Laundering) covers the controls that detect and report suspicious flows of funds, such as transaction monitoring."),
		WithAnswer("How is FATF related to crypto?",
			"The **FATF** sets international standards; its *travel rule* requires virtual asset service providers to share originator and beneficiary data."),
		WithAnswer("What are sanctions screening checks?",
			"Sanctions screening compares customers, counterparties and wallet addresses against lists such as OFAC SDN."),
		WithAnswer("Why is blockchain transparency important?",
			"A public ledger lets analysts trace funds across addresses, which supports investigations and risk scoring."),
		WithFallback("I can only answer questions about crypto compliance in this demo backend."),
	}
	return New(append(base, options...)...)
}

// SetMode switches the failure behaviour. status is used by ModeStatus.
func (s *Server) SetMode(mode Mode, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	if status > 0 {
		s.status = status
	}
}

// Received returns the raw query strings seen so far, in arrival order.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

// Router returns the chi router serving POST /query.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/query", s.handleQuery)
	return r
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.received = append(s.received, body.Query)
	mode, status, latency := s.mode, s.status, s.latency
	answer, ok := s.answers[normalize(body.Query)]
	if !ok {
		answer = s.fallback
	}
	s.mu.Unlock()

	s.logger.Debug().Str("query", body.Query).Str("mode", string(mode)).Msg("stub query")

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	switch mode {
	case ModeStatus:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"detail":"stub failure"}`))
	case ModeMalformed:
		_, _ = w.Write([]byte(`{"answer": "unterminated`))
	case ModeEmptyAnswer:
		_, _ = w.Write([]byte(`{}`))
	default:
		if answer == "" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": answer})
	}
}

func normalize(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
