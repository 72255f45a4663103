// Package main runs the bond engine daemon: the JSON API over the engine,
// the WebSocket event stream, and the Prometheus metrics endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"impact-bond-engine/internal/clock"
	"impact-bond-engine/internal/config"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/engine"
	"impact-bond-engine/internal/events"
	"impact-bond-engine/internal/observability"
	"impact-bond-engine/internal/reporting"
	"impact-bond-engine/internal/roles"
	"impact-bond-engine/internal/storage"
	chstore "impact-bond-engine/internal/storage/clickhouse"
	"impact-bond-engine/internal/storage/memory"
	"impact-bond-engine/internal/storage/migrations"
	pgstore "impact-bond-engine/internal/storage/postgres"
	"impact-bond-engine/internal/tokens"
)

// allStores holds all storage implementations.
type allStores struct {
	bonds         storage.BondStore
	packages      storage.PackageStore
	reports       storage.ImpactReportStore
	periodYields  storage.PeriodYieldStore
	accountYields storage.AccountYieldStore
	documents     storage.DocumentStore
	roleStore     storage.RoleStore
	balances      storage.BalanceStore
	tokenRequests storage.TokenRequestStore
	rateHistory   storage.RateHistoryStore
}

// Server wires the engine and its collaborators behind the HTTP API.
type Server struct {
	engine    *engine.Service
	tokens    *tokens.Ledger
	registry  *roles.Registry
	generator *reporting.Generator
	hub       *events.Hub
	metrics   *observability.Metrics
	logger    *log.Logger
	started   time.Time
}

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	flag.Parse()

	logger := log.New(os.Stdout, "[bondd] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	registry := roles.NewRegistry(stores.roleStore)
	if cfg.Registry.MasterAccount != "" {
		master, err := domain.ParseAccount(cfg.Registry.MasterAccount)
		if err != nil {
			logger.Fatalf("Invalid master account: %v", err)
		}
		if err := registry.Bootstrap(ctx, master); err != nil {
			logger.Fatalf("Failed to bootstrap master account: %v", err)
		}
		logger.Printf("Master account: %s", master)
	}

	clk := clock.System{}
	tokenLedger := tokens.NewLedger(stores.balances, stores.tokenRequests, registry, clk)

	hub := events.NewHub(log.New(os.Stdout, "[events] ", log.LstdFlags))
	go hub.Run(ctx)

	svc := engine.NewService(engine.Deps{
		Bonds:         stores.bonds,
		Packages:      stores.packages,
		Reports:       stores.reports,
		PeriodYields:  stores.periodYields,
		AccountYields: stores.accountYields,
		Documents:     stores.documents,
		RateHistory:   stores.rateHistory,
		Tokens:        tokenLedger,
		Registry:      registry,
		Clock:         clk,
		Emitter:       hub,
		Logger:        log.New(os.Stdout, "[engine] ", log.LstdFlags),
		Validation: domain.ValidationConfig{
			DayDuration:     cfg.Engine.DayDurationSeconds,
			MinBondDuration: cfg.Engine.MinBondDuration,
		},
	})

	server := &Server{
		engine:    svc,
		tokens:    tokenLedger,
		registry:  registry,
		generator: reporting.NewGenerator(stores.bonds, stores.packages, stores.reports, stores.periodYields, stores.accountYields),
		hub:       hub,
		metrics:   observability.NewMetrics(cfg.Server.MetricsNamespace),
		logger:    logger,
		started:   time.Now(),
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s (storage: %s)", cfg.Server.Addr, cfg.Storage.Backend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates all required stores per the configured backend.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*allStores, func(), error) {
	stores := &allStores{}
	cleanup := func() {}

	if cfg.Storage.Backend == "memory" {
		stores.bonds = memory.NewBondStore()
		stores.packages = memory.NewPackageStore()
		stores.reports = memory.NewImpactReportStore()
		stores.periodYields = memory.NewPeriodYieldStore()
		stores.accountYields = memory.NewAccountYieldStore()
		stores.documents = memory.NewDocumentStore()
		stores.roleStore = memory.NewRoleStore()
		stores.balances = memory.NewBalanceStore()
		stores.tokenRequests = memory.NewTokenRequestStore()
		stores.rateHistory = memory.NewRateHistoryStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
			}
		}
		stores.bonds = pgstore.NewBondStore(pool)
		stores.packages = pgstore.NewPackageStore(pool)
		stores.reports = pgstore.NewImpactReportStore(pool)
		stores.periodYields = pgstore.NewPeriodYieldStore(pool)
		stores.accountYields = pgstore.NewAccountYieldStore(pool)
		stores.documents = pgstore.NewDocumentStore(pool)
		stores.roleStore = pgstore.NewRoleStore(pool)
		stores.balances = pgstore.NewBalanceStore(pool)
		stores.tokenRequests = pgstore.NewTokenRequestStore(pool)
		cleanup = pool.Close
	}

	if cfg.Clickhouse.Enabled {
		conn, err := chstore.NewConn(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if cfg.Clickhouse.RunMigrations {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				conn.Close()
				cleanup()
				return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
			}
		}
		stores.rateHistory = chstore.NewRateHistoryStore(conn)
		prev := cleanup
		cleanup = func() {
			conn.Close()
			prev()
		}
		logger.Println("Rate history sink: clickhouse")
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /events", s.hub.HandleWS)

	// Bond lifecycle
	mux.HandleFunc("GET /bonds", s.instrument("list_bonds", s.handleListBonds))
	mux.HandleFunc("POST /bonds", s.instrument("create_bond", s.handleCreateBond))
	mux.HandleFunc("GET /bonds/{id}", s.instrument("get_bond", s.handleGetBond))
	mux.HandleFunc("PUT /bonds/{id}", s.instrument("update_bond", s.handleUpdateBond))
	mux.HandleFunc("POST /bonds/{id}/roles", s.instrument("assign_roles", s.handleAssignRoles))
	mux.HandleFunc("POST /bonds/{id}/booking", s.instrument("open_booking", s.handleOpenBooking))
	mux.HandleFunc("POST /bonds/{id}/activate", s.instrument("activate", s.handleActivate))
	mux.HandleFunc("POST /bonds/{id}/finish", s.instrument("finish", s.handleFinish))
	mux.HandleFunc("POST /bonds/{id}/bankrupt", s.instrument("declare_bankrupt", s.handleDeclareBankrupt))
	mux.HandleFunc("POST /bonds/{id}/cancel", s.instrument("cancel_booking", s.handleCancel))

	// Trading
	mux.HandleFunc("POST /bonds/{id}/buy", s.instrument("buy_units", s.handleBuyUnits))
	mux.HandleFunc("POST /bonds/{id}/return", s.instrument("return_units", s.handleReturnUnits))
	mux.HandleFunc("POST /bonds/{id}/redeem", s.instrument("redeem", s.handleRedeem))

	// Servicing
	mux.HandleFunc("POST /bonds/{id}/reports", s.instrument("submit_report", s.handleSubmitReport))
	mux.HandleFunc("POST /bonds/{id}/reports/{period}/approve", s.instrument("approve_report", s.handleApproveReport))
	mux.HandleFunc("POST /bonds/{id}/deposit", s.instrument("deposit", s.handleDeposit))
	mux.HandleFunc("POST /bonds/{id}/withdraw", s.instrument("withdraw_free_balance", s.handleWithdrawFreeBalance))
	mux.HandleFunc("POST /bonds/{id}/accrue", s.instrument("accrue_coupon", s.handleAccrue))
	mux.HandleFunc("POST /bonds/{id}/yield", s.instrument("withdraw_coupon_yield", s.handleWithdrawYield))
	mux.HandleFunc("GET /bonds/{id}/servicing-report", s.instrument("servicing_report", s.handleServicingReport))

	// Documents
	mux.HandleFunc("POST /documents", s.instrument("file_document", s.handleFileDocument))
	mux.HandleFunc("POST /documents/{hash}/sign", s.instrument("sign_document", s.handleSignDocument))
	mux.HandleFunc("GET /documents/{hash}/signatures", s.instrument("document_signatures", s.handleDocumentSignatures))

	// Role registry
	mux.HandleFunc("GET /accounts/{account}/roles", s.instrument("get_roles", s.handleGetRoles))
	mux.HandleFunc("POST /roles/grant", s.instrument("grant_roles", s.handleGrantRoles))
	mux.HandleFunc("POST /roles/revoke", s.instrument("revoke_roles", s.handleRevokeRoles))

	// EverUSD token operations
	mux.HandleFunc("GET /accounts/{account}/balance", s.instrument("get_balance", s.handleGetBalance))
	mux.HandleFunc("POST /tokens/transfer", s.instrument("transfer", s.handleTransfer))
	mux.HandleFunc("POST /tokens/mint", s.instrument("request_mint", s.handleRequestMint))
	mux.HandleFunc("POST /tokens/burn", s.instrument("request_burn", s.handleRequestBurn))
	mux.HandleFunc("POST /tokens/mint/confirm", s.instrument("confirm_mint", s.handleConfirmMint))
	mux.HandleFunc("POST /tokens/burn/confirm", s.instrument("confirm_burn", s.handleConfirmBurn))
	mux.HandleFunc("POST /tokens/decline", s.instrument("decline_request", s.handleDeclineRequest))
	mux.HandleFunc("GET /tokens/requests/{kind}", s.instrument("list_requests", s.handleListRequests))

	return mux
}

// instrument wraps a handler with operation metrics.
func (s *Server) instrument(op string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.OperationsTotal.WithLabelValues(op).Inc()
		h(w, r)
		s.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Bonds  int    `json:"bonds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	bonds, err := s.engine.ListBonds(r.Context())
	if err != nil {
		s.writeError(w, "status", err)
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).String(),
		Bonds:  len(bonds),
	})
}

func (s *Server) handleListBonds(w http.ResponseWriter, r *http.Request) {
	bonds, err := s.engine.ListBonds(r.Context())
	if err != nil {
		s.writeError(w, "list_bonds", err)
		return
	}
	s.writeJSON(w, http.StatusOK, bonds)
}

func (s *Server) handleGetBond(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	bond, err := s.engine.GetBond(r.Context(), id)
	if err != nil {
		s.writeError(w, "get_bond", err)
		return
	}
	s.writeJSON(w, http.StatusOK, bond)
}

type createBondRequest struct {
	Issuer domain.AccountID      `json:"issuer"`
	Ticker string                `json:"ticker"`
	Params domain.BondParameters `json:"params"`
}

func (s *Server) handleCreateBond(w http.ResponseWriter, r *http.Request) {
	var req createBondRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := domain.ParseBondID(req.Ticker)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.engine.CreateBond(r.Context(), req.Issuer, id, req.Params); err != nil {
		s.writeError(w, "create_bond", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"ticker": id.String()})
}

type updateBondRequest struct {
	Issuer domain.AccountID      `json:"issuer"`
	Params domain.BondParameters `json:"params"`
}

func (s *Server) handleUpdateBond(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req updateBondRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.UpdateBond(r.Context(), req.Issuer, id, req.Params); err != nil {
		s.writeError(w, "update_bond", err)
		return
	}
	s.ok(w)
}

type assignRolesRequest struct {
	Caller   domain.AccountID `json:"caller"`
	Manager  domain.AccountID `json:"manager"`
	Auditor  domain.AccountID `json:"auditor"`
	Reporter domain.AccountID `json:"impact_reporter"`
}

func (s *Server) handleAssignRoles(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req assignRolesRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.AssignRoles(r.Context(), req.Caller, id, req.Manager, req.Auditor, req.Reporter); err != nil {
		s.writeError(w, "assign_roles", err)
		return
	}
	s.ok(w)
}

// callerRequest is the body of every operation that needs only an acting
// account.
type callerRequest struct {
	Caller domain.AccountID `json:"caller"`
}

// bondOp runs an engine operation of the shape (caller, bond) -> error.
func (s *Server) bondOp(op string, fn func(ctx context.Context, caller domain.AccountID, id domain.BondID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := domain.ParseBondID(r.PathValue("id"))
		if err != nil {
			s.badRequest(w, err)
			return
		}
		var req callerRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := fn(r.Context(), req.Caller, id); err != nil {
			s.writeError(w, op, err)
			return
		}
		s.ok(w)
	}
}

func (s *Server) handleOpenBooking(w http.ResponseWriter, r *http.Request) {
	s.bondOp("open_booking", s.engine.OpenBooking)(w, r)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.bondOp("activate", s.engine.Activate)(w, r)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.bondOp("finish", s.engine.Finish)(w, r)
}

func (s *Server) handleDeclareBankrupt(w http.ResponseWriter, r *http.Request) {
	s.bondOp("declare_bankrupt", s.engine.DeclareBankrupt)(w, r)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.bondOp("cancel_booking", s.engine.CancelAfterDeadline)(w, r)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	s.bondOp("redeem", s.engine.Redeem)(w, r)
}

func (s *Server) handleWithdrawFreeBalance(w http.ResponseWriter, r *http.Request) {
	s.bondOp("withdraw_free_balance", s.engine.WithdrawFreeBalance)(w, r)
}

func (s *Server) handleWithdrawYield(w http.ResponseWriter, r *http.Request) {
	s.bondOp("withdraw_coupon_yield", s.engine.WithdrawCouponYield)(w, r)
}

type unitsRequest struct {
	Caller domain.AccountID `json:"caller"`
	Units  uint64           `json:"units"`
}

func (s *Server) handleBuyUnits(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req unitsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.BuyUnits(r.Context(), req.Caller, id, req.Units); err != nil {
		s.writeError(w, "buy_units", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleReturnUnits(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req unitsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.ReturnUnits(r.Context(), req.Caller, id, req.Units); err != nil {
		s.writeError(w, "return_units", err)
		return
	}
	s.ok(w)
}

type submitReportRequest struct {
	Caller domain.AccountID `json:"caller"`
	Period uint32           `json:"period"`
	Impact uint64           `json:"impact"`
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req submitReportRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SubmitImpactReport(r.Context(), req.Caller, id, req.Period, req.Impact); err != nil {
		s.writeError(w, "submit_report", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleApproveReport(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	period, err := strconv.ParseUint(r.PathValue("period"), 10, 32)
	if err != nil {
		s.badRequest(w, fmt.Errorf("invalid period: %w", err))
		return
	}
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.ApproveImpactReport(r.Context(), req.Caller, id, uint32(period)); err != nil {
		s.writeError(w, "approve_report", err)
		return
	}
	s.ok(w)
}

type amountRequest struct {
	Caller domain.AccountID `json:"caller"`
	Amount uint64           `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.Deposit(r.Context(), req.Caller, id, req.Amount); err != nil {
		s.writeError(w, "deposit", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleAccrue(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.engine.AccrueCoupon(r.Context(), id); err != nil {
		s.writeError(w, "accrue_coupon", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleServicingReport(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseBondID(r.PathValue("id"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	report, err := s.generator.Generate(r.Context(), id)
	if err != nil {
		s.writeError(w, "servicing_report", err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(report)))
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderCSV(report.Periods)))
	default:
		s.writeJSON(w, http.StatusOK, report)
	}
}

type fileDocumentRequest struct {
	Caller domain.AccountID `json:"caller"`
	Hash   domain.Hash      `json:"hash"`
	Title  string           `json:"title"`
}

func (s *Server) handleFileDocument(w http.ResponseWriter, r *http.Request) {
	var req fileDocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.FileDocument(r.Context(), req.Caller, req.Hash, req.Title); err != nil {
		s.writeError(w, "file_document", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"hash": req.Hash.String()})
}

type signDocumentRequest struct {
	Caller    domain.AccountID `json:"caller"`
	Signature []byte           `json:"signature"` // base64 per encoding/json
}

func (s *Server) handleSignDocument(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseHash(r.PathValue("hash"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	var req signDocumentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.engine.SignDocument(r.Context(), req.Caller, hash, req.Signature); err != nil {
		s.writeError(w, "sign_document", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleDocumentSignatures(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseHash(r.PathValue("hash"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	sigs, err := s.engine.DocumentSignatures(r.Context(), hash)
	if err != nil {
		s.writeError(w, "document_signatures", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sigs)
}

func (s *Server) handleGetRoles(w http.ResponseWriter, r *http.Request) {
	acc, err := domain.ParseAccount(r.PathValue("account"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	mask, err := s.registry.Get(r.Context(), acc)
	if err != nil {
		s.writeError(w, "get_roles", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"account": string(acc),
		"roles":   mask.String(),
	})
}

type roleChangeRequest struct {
	Caller  domain.AccountID `json:"caller"`
	Account domain.AccountID `json:"account"`
	Roles   string           `json:"roles"` // e.g. "ISSUER|INVESTOR"
}

func (s *Server) handleGrantRoles(w http.ResponseWriter, r *http.Request) {
	var req roleChangeRequest
	if !s.decode(w, r, &req) {
		return
	}
	mask, err := domain.ParseRoleMask(req.Roles)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.registry.Grant(r.Context(), req.Caller, req.Account, mask); err != nil {
		s.writeError(w, "grant_roles", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleRevokeRoles(w http.ResponseWriter, r *http.Request) {
	var req roleChangeRequest
	if !s.decode(w, r, &req) {
		return
	}
	mask, err := domain.ParseRoleMask(req.Roles)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.registry.Revoke(r.Context(), req.Caller, req.Account, mask); err != nil {
		s.writeError(w, "revoke_roles", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	acc, err := domain.ParseAccount(r.PathValue("account"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	balance, err := s.tokens.Balance(r.Context(), acc)
	if err != nil {
		s.writeError(w, "get_balance", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"account": string(acc),
		"balance": balance,
	})
}

type transferRequest struct {
	From   domain.AccountID `json:"from"`
	To     domain.AccountID `json:"to"`
	Amount uint64           `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tokens.Transfer(r.Context(), req.From, req.To, req.Amount); err != nil {
		s.writeError(w, "transfer", err)
		return
	}
	s.metrics.TransfersTotal.Inc()
	s.metrics.TransferVolume.Add(float64(req.Amount))
	s.ok(w)
}

func (s *Server) handleRequestMint(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tokens.RequestMint(r.Context(), req.Caller, req.Amount); err != nil {
		s.writeError(w, "request_mint", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleRequestBurn(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tokens.RequestBurn(r.Context(), req.Caller, req.Amount); err != nil {
		s.writeError(w, "request_burn", err)
		return
	}
	s.ok(w)
}

type confirmRequest struct {
	Caller  domain.AccountID `json:"caller"`
	Account domain.AccountID `json:"account"`
}

func (s *Server) handleConfirmMint(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tokens.ConfirmMint(r.Context(), req.Caller, req.Account); err != nil {
		s.writeError(w, "confirm_mint", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleConfirmBurn(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tokens.ConfirmBurn(r.Context(), req.Caller, req.Account); err != nil {
		s.writeError(w, "confirm_burn", err)
		return
	}
	s.ok(w)
}

type declineRequest struct {
	Caller  domain.AccountID `json:"caller"`
	Account domain.AccountID `json:"account"`
	Kind    string           `json:"kind"` // MINT or BURN
}

func (s *Server) handleDeclineRequest(w http.ResponseWriter, r *http.Request) {
	var req declineRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, err := parseRequestKind(req.Kind)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.tokens.Decline(r.Context(), req.Caller, kind, req.Account); err != nil {
		s.writeError(w, "decline_request", err)
		return
	}
	s.ok(w)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	kind, err := parseRequestKind(r.PathValue("kind"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	reqs, err := s.tokens.PendingRequests(r.Context(), kind)
	if err != nil {
		s.writeError(w, "list_requests", err)
		return
	}
	s.writeJSON(w, http.StatusOK, reqs)
}

func parseRequestKind(s string) (domain.TokenRequestKind, error) {
	switch domain.TokenRequestKind(s) {
	case domain.RequestMint:
		return domain.RequestMint, nil
	case domain.RequestBurn:
		return domain.RequestBurn, nil
	default:
		return "", fmt.Errorf("unknown request kind %q", s)
	}
}

// decode reads the JSON request body, replying 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.badRequest(w, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func (s *Server) ok(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Encode response: %v", err)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// writeError maps engine rejections to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, engine.ErrDuplicateReport),
		errors.Is(err, engine.ErrStateMismatch):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrUnauthorized),
		errors.Is(err, roles.ErrNotMaster),
		errors.Is(err, tokens.ErrNotCustodian):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidParameters),
		errors.Is(err, engine.ErrDeadlineExceeded),
		errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, engine.ErrArithmeticOverflow),
		errors.Is(err, tokens.ErrZeroAmount):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInsufficientBalance),
		errors.Is(err, tokens.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("%s: %v", op, err)
	}
	s.metrics.OperationErrors.WithLabelValues(op, http.StatusText(status)).Inc()
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
