package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/account"
	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/deal"
	"github.com/STTM-NSU/invest-ledger/internal/income"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/syncer"
	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

type Accounts interface {
	Create(ctx context.Context, p account.CreateParams) (model.Account, error)
	Get(ctx context.Context, accountID int64) (model.Account, error)
	AddCoOwner(ctx context.Context, accountID, personID int64, share decimal.Decimal) (model.CoOwner, error)
	SetDefaultShare(ctx context.Context, accountID, personID int64, share decimal.Decimal) error
	CoOwners(ctx context.Context, accountID int64) ([]model.CoOwner, error)
}

type Syncer interface {
	Sync(ctx context.Context, accountID int64, now time.Time) (syncer.Result, error)
}

type Operations interface {
	Operations(ctx context.Context, accountID int64, figi string) ([]model.OperationView, error)
}

type Deals interface {
	Summaries(ctx context.Context, accountID int64, figi string) ([]model.DealSummary, error)
}

type Income interface {
	Report(ctx context.Context, accountID int64) (income.Report, error)
	LiveEstimates(ctx context.Context, accountID int64, source income.PortfolioSource) ([]income.Estimate, error)
}

type Currencies interface {
	Currencies(ctx context.Context, accountID int64) ([]model.CurrencyAsset, error)
}

type Shares interface {
	Sums(ctx context.Context, accountID int64) ([]model.ShareSum, error)
}

type Deps struct {
	Accounts      Accounts
	Syncer        Syncer
	Operations    Operations
	Deals         Deals
	Income        Income
	Currencies    Currencies
	Shares        Shares
	Dialer        broker.Dialer
	BrokerTimeout time.Duration
}

// Handler is the JSON surface of the ledger. Read endpoints sync the account
// first; a failed sync is reported in the X-Sync-Error header and the stored
// data is served anyway.
type Handler struct {
	d      Deps
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(d Deps, logger logger.Logger) *Handler {
	return &Handler{
		d:      d,
		logger: logger,
		now:    time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts", h.createAccount)
	mux.HandleFunc("POST /accounts/{id}/sync", h.sync)
	mux.HandleFunc("GET /accounts/{id}/operations", h.operations)
	mux.HandleFunc("GET /accounts/{id}/deals", h.deals)
	mux.HandleFunc("GET /accounts/{id}/income", h.income)
	mux.HandleFunc("GET /accounts/{id}/estimates", h.estimates)
	mux.HandleFunc("GET /accounts/{id}/currencies", h.currencies)
	mux.HandleFunc("GET /accounts/{id}/shares", h.shares)
	mux.HandleFunc("GET /accounts/{id}/co-owners", h.coOwners)
	mux.HandleFunc("POST /accounts/{id}/co-owners", h.addCoOwner)
	mux.HandleFunc("PUT /accounts/{id}/co-owners/{person}", h.setDefaultShare)
	return mux
}

var errBadRequest = errors.New("bad request")

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var p account.CreateParams
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, errors.Join(errBadRequest, err))
		return
	}
	acc, err := h.d.Accounts.Create(r.Context(), p)
	if err != nil && acc.ID == 0 {
		h.writeError(w, err)
		return
	}
	if err != nil {
		w.Header().Set("X-Sync-Error", err.Error())
	}
	h.writeJSON(w, http.StatusCreated, acc)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	res, err := h.d.Syncer.Sync(r.Context(), id, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) operations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.syncedAccount(w, r)
	if !ok {
		return
	}
	ops, err := h.d.Operations.Operations(r.Context(), id, r.URL.Query().Get("figi"))
	h.respond(w, ops, err)
}

func (h *Handler) deals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.syncedAccount(w, r)
	if !ok {
		return
	}
	deals, err := h.d.Deals.Summaries(r.Context(), id, r.URL.Query().Get("figi"))
	h.respond(w, deals, err)
}

func (h *Handler) income(w http.ResponseWriter, r *http.Request) {
	id, ok := h.syncedAccount(w, r)
	if !ok {
		return
	}
	report, err := h.d.Income.Report(r.Context(), id)
	h.respond(w, report, err)
}

func (h *Handler) estimates(w http.ResponseWriter, r *http.Request) {
	id, ok := h.syncedAccount(w, r)
	if !ok {
		return
	}
	acc, err := h.d.Accounts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.d.BrokerTimeout)
	defer cancel()
	client, err := h.d.Dialer.Dial(ctx, broker.Credentials{Token: acc.Token, BrokerAccountID: acc.BrokerAccountID})
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer func() {
		if err := client.Close(); err != nil {
			h.logger.Warnf("can't close broker client: %v", err)
		}
	}()

	estimates, err := h.d.Income.LiveEstimates(ctx, id, client)
	h.respond(w, estimates, err)
}

func (h *Handler) currencies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.syncedAccount(w, r)
	if !ok {
		return
	}
	assets, err := h.d.Currencies.Currencies(r.Context(), id)
	h.respond(w, assets, err)
}

func (h *Handler) shares(w http.ResponseWriter, r *http.Request) {
	id, ok := h.syncedAccount(w, r)
	if !ok {
		return
	}
	sums, err := h.d.Shares.Sums(r.Context(), id)
	h.respond(w, sums, err)
}

func (h *Handler) coOwners(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	coOwners, err := h.d.Accounts.CoOwners(r.Context(), id)
	h.respond(w, coOwners, err)
}

type coOwnerRequest struct {
	PersonID     int64           `json:"person_id"`
	DefaultShare decimal.Decimal `json:"default_share"`
}

func (h *Handler) addCoOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req coOwnerRequest
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(errBadRequest, err))
		return
	}
	c, err := h.d.Accounts.AddCoOwner(r.Context(), id, req.PersonID, req.DefaultShare)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) setDefaultShare(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	person, err := strconv.ParseInt(r.PathValue("person"), 10, 64)
	if err != nil {
		h.writeError(w, errors.Join(errBadRequest, err))
		return
	}
	var req coOwnerRequest
	if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(errBadRequest, err))
		return
	}
	if err := h.d.Accounts.SetDefaultShare(r.Context(), id, person, req.DefaultShare); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, errors.Join(errBadRequest, err))
		return 0, false
	}
	return id, true
}

// syncedAccount parses the account id and runs the freshness gated sync.
func (h *Handler) syncedAccount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := h.accountID(w, r)
	if !ok {
		return 0, false
	}
	if _, err := h.d.Syncer.Sync(r.Context(), id, h.now()); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			h.writeError(w, err)
			return 0, false
		}
		h.logger.Warnf("serving account %d without sync: %v", id, err)
		w.Header().Set("X-Sync-Error", err.Error())
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("can't write response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("request failed: %v", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	var recErr *deal.ReconciliationError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, account.ErrInvalidParams),
		errors.Is(err, account.ErrInvalidShare):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrAccountNotFound),
		errors.Is(err, account.ErrCoOwnerNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrAccountExists),
		errors.Is(err, account.ErrCoOwnerExists),
		errors.As(err, &recErr):
		return http.StatusConflict
	case broker.IsAuthentication(err):
		return http.StatusUnprocessableEntity
	case broker.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
