package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rexbrahh/lp-vault/address"
	"github.com/rexbrahh/lp-vault/api/http/cache"
	apitypes "github.com/rexbrahh/lp-vault/api/http/types"
	"github.com/rexbrahh/lp-vault/audit"
	"github.com/rexbrahh/lp-vault/instruction"
	"github.com/rexbrahh/lp-vault/ledger"
	"github.com/rexbrahh/lp-vault/logger"
	"github.com/rexbrahh/lp-vault/payments"
	"github.com/rexbrahh/lp-vault/store"
)

const maxInstructionBody = 64 << 10

// Deps bundles the collaborators the HTTP API serves from.
type Deps struct {
	Engine    *ledger.Engine
	Processor *instruction.Processor
	Bank      *payments.Bank
	Auditor   *audit.Auditor
	Cache     *cache.Cache
	Logger    zerolog.Logger
	// Registry backs /metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server bundles dependencies for the HTTP API.
type Server struct {
	router    *chi.Mux
	engine    *ledger.Engine
	processor *instruction.Processor
	bank      *payments.Bank
	auditor   *audit.Auditor
	cache     *cache.Cache
	logger    zerolog.Logger
	metrics   *apiMetrics
	started   time.Time
}

// NewServer constructs a Server with registered routes.
func NewServer(deps Deps) *Server {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		router:    chi.NewRouter(),
		engine:    deps.Engine,
		processor: deps.Processor,
		bank:      deps.Bank,
		auditor:   deps.Auditor,
		cache:     deps.Cache,
		logger:    deps.Logger.With().Str("component", "api").Logger(),
		metrics:   newAPIMetrics(reg),
		started:   time.Now(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.instrument)

	s.router.Get("/healthz", s.healthzHandler)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/config", s.configHandler)
		r.Route("/vaults/{owner}", func(r chi.Router) {
			r.Get("/", s.vaultHandler)
			r.Get("/positions", s.positionsHandler)
			r.Get("/positions/{id}", s.positionHandler)
			r.Get("/audit", s.auditHandler)
		})
		r.Get("/balances/{identity}", s.balanceHandler)
		r.Route("/addresses", func(r chi.Router) {
			r.Get("/config", s.configAddressHandler)
			r.Get("/vault/{owner}", s.vaultAddressHandler)
			r.Get("/position/{owner}/{id}", s.positionAddressHandler)
		})
		r.Post("/instructions", s.instructionHandler)
	})

	return s
}

// Handler exposes the underlying router for integration tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	resp := apitypes.HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Millisecond).String(),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := readThrough(s, r.Context(), "config", cache.ConfigKey, "config", func(ctx context.Context) (apitypes.ConfigResponse, error) {
		cfg, err := s.engine.Config(ctx)
		if err != nil {
			return apitypes.ConfigResponse{}, err
		}
		addr, err := s.engine.Deriver().Config()
		if err != nil {
			return apitypes.ConfigResponse{}, err
		}
		return apitypes.ConfigResponse{
			Address: addr.String(),
			Config:  cfg,
			FeePct:  apitypes.BpsToPercent(cfg.FeeBps),
		}, nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) vaultHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}

	resp, err := readThrough(s, r.Context(), "vault", cache.OwnerKey(owner.String()), "vault", func(ctx context.Context) (apitypes.VaultResponse, error) {
		vault, err := s.engine.Vault(ctx, owner)
		if err != nil {
			return apitypes.VaultResponse{}, err
		}
		addr, err := s.engine.Deriver().Vault(owner)
		if err != nil {
			return apitypes.VaultResponse{}, err
		}
		return apitypes.NewVaultResponse(addr.String(), vault), nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) positionsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}

	resp, err := readThrough(s, r.Context(), "positions", cache.OwnerKey(owner.String()), "positions", func(ctx context.Context) (apitypes.PositionsResponse, error) {
		positions, err := s.engine.Positions(ctx, owner)
		if err != nil {
			return apitypes.PositionsResponse{}, err
		}
		out := apitypes.PositionsResponse{
			Owner:     owner.String(),
			Positions: make([]apitypes.PositionResponse, 0, len(positions)),
		}
		for _, p := range positions {
			addr, err := s.engine.Deriver().Position(owner, p.PositionID)
			if err != nil {
				return apitypes.PositionsResponse{}, err
			}
			out.Positions = append(out.Positions, apitypes.NewPositionResponse(addr.String(), p))
		}
		return out, nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) positionHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}

	resp, err := readThrough(s, r.Context(), "position", cache.OwnerKey(owner.String()), cache.PositionField(id), func(ctx context.Context) (apitypes.PositionResponse, error) {
		position, err := s.engine.Position(ctx, owner, id)
		if err != nil {
			return apitypes.PositionResponse{}, err
		}
		addr, err := s.engine.Deriver().Position(owner, id)
		if err != nil {
			return apitypes.PositionResponse{}, err
		}
		return apitypes.NewPositionResponse(addr.String(), position), nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) auditHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}
	report, err := s.auditor.Run(r.Context(), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.AuditResponse(report))
}

func (s *Server) balanceHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.addressParam(w, r, "identity")
	if !ok {
		return
	}

	ctx := r.Context()
	var amount uint64
	err := s.engine.Store().View(ctx, func(tx store.Tx) error {
		var err error
		amount, err = s.bank.Balance(ctx, tx, identity)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.BalanceResponse{
		Identity: identity.String(),
		Lamports: amount,
		SOL:      apitypes.ToSOL(amount),
	})
}

func (s *Server) configAddressHandler(w http.ResponseWriter, r *http.Request) {
	s.writeDerived(w, address.ConfigSeeds())
}

func (s *Server) vaultAddressHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}
	s.writeDerived(w, address.VaultSeeds(owner))
}

func (s *Server) positionAddressHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.addressParam(w, r, "owner")
	if !ok {
		return
	}
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	s.writeDerived(w, address.PositionSeeds(owner, id))
}

func (s *Server) writeDerived(w http.ResponseWriter, seeds [][]byte) {
	addr, bump, err := s.engine.Deriver().Derive(seeds...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apitypes.AddressResponse{Address: addr.String(), Bump: bump})
}

func (s *Server) instructionHandler(w http.ResponseWriter, r *http.Request) {
	var req apitypes.InstructionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInstructionBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apitypes.ErrorResponse{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	ix, err := buildInstruction(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apitypes.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	receipt, err := s.processor.Process(ctx, ix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.invalidate(ctx, receipt)

	resp := apitypes.InstructionResponse{
		Instruction: receipt.Instruction.String(),
		Config:      receipt.Config,
		Vault:       receipt.Vault,
		Position:    receipt.Position,
	}
	if !receipt.Owner.IsZero() {
		resp.Owner = receipt.Owner.String()
	}
	if receipt.Position != nil {
		id := receipt.PositionID
		resp.PositionID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildInstruction resolves base58 accounts and marks those listed in
// Signers as signing.
func buildInstruction(req apitypes.InstructionRequest) (instruction.Instruction, error) {
	signers := make(map[address.Address]struct{}, len(req.Signers))
	for _, raw := range req.Signers {
		addr, err := address.Parse(raw)
		if err != nil {
			return instruction.Instruction{}, fmt.Errorf("invalid signer: %w", err)
		}
		signers[addr] = struct{}{}
	}

	accounts := make([]instruction.AccountMeta, 0, len(req.Accounts))
	for i, raw := range req.Accounts {
		addr, err := address.Parse(raw)
		if err != nil {
			return instruction.Instruction{}, fmt.Errorf("invalid account %d: %w", i, err)
		}
		_, signed := signers[addr]
		accounts = append(accounts, instruction.AccountMeta{Address: addr, IsSigner: signed})
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("invalid data: %w", err)
	}
	return instruction.Instruction{Accounts: accounts, Data: data}, nil
}

// invalidate drops cached views touched by receipt.
func (s *Server) invalidate(ctx context.Context, receipt instruction.Receipt) {
	var keys []string
	switch receipt.Instruction {
	case instruction.DiscInitializeConfig, instruction.DiscUpdateConfig:
		keys = append(keys, cache.ConfigKey)
	}
	if !receipt.Owner.IsZero() {
		keys = append(keys, cache.OwnerKey(receipt.Owner.String()))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil && !errors.Is(err, cache.ErrDisabled) {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

// readThrough serves view from the cache, loading and storing it on a miss.
// The generation is read before loading so a concurrent invalidation wins.
func readThrough[T any](s *Server, ctx context.Context, view, key, field string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	err := s.cache.Get(ctx, key, field, &cached)
	switch {
	case err == nil:
		s.metrics.cacheHits.WithLabelValues(view).Inc()
		return cached, nil
	case errors.Is(err, cache.ErrDisabled):
		return load(ctx)
	case errors.Is(err, apitypes.ErrNotFound):
		s.metrics.cacheMisses.WithLabelValues(view).Inc()
	default:
		s.logger.Warn().Err(err).Str("view", view).Msg("cache get failed")
	}

	gen, genErr := s.cache.Generation(ctx, key)
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if genErr != nil {
		s.logger.Warn().Err(genErr).Str("view", view).Msg("cache generation failed")
		return out, nil
	}
	if _, err := s.cache.Set(ctx, key, field, gen, out); err != nil {
		s.logger.Warn().Err(err).Str("view", view).Msg("cache set failed")
	}
	return out, nil
}

func (s *Server) addressParam(w http.ResponseWriter, r *http.Request, name string) (address.Address, bool) {
	addr, err := address.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apitypes.ErrorResponse{Error: fmt.Sprintf("invalid %s: %v", name, err)})
		return address.Address{}, false
	}
	return addr, true
}

func (s *Server) idParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apitypes.ErrorResponse{Error: "invalid position id"})
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to write response")
	}
}
