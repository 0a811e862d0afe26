package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"RailSettle/internal/core/capability"
	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/mandate"
	"RailSettle/internal/core/microdeposit"
	"RailSettle/internal/core/nacha"
	"RailSettle/internal/core/ports"
	"RailSettle/internal/core/risk"
	"RailSettle/internal/core/strategy"
	"RailSettle/internal/core/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler carries every dependency the HTTP surface needs.
type Handler struct {
	accounts      ports.BankAccountRepository
	mandates      ports.MandateRepository
	transfers     ports.TransferRepository
	vault         ports.Vault
	negativeList  ports.NegativeList
	bus           ports.EventBus
	detector      *capability.Detector
	selector      *strategy.Selector
	mandateEngine *mandate.Engine
	riskEngine    *risk.Engine
	microdeposits *microdeposit.Service
	nachaBuilder  *nacha.Builder
	log           zerolog.Logger
}

// NewHandler wires the HTTP surface.
func NewHandler(
	accounts ports.BankAccountRepository,
	mandates ports.MandateRepository,
	transfers ports.TransferRepository,
	vault ports.Vault,
	negativeList ports.NegativeList,
	bus ports.EventBus,
	detector *capability.Detector,
	selector *strategy.Selector,
	mandateEngine *mandate.Engine,
	riskEngine *risk.Engine,
	microdeposits *microdeposit.Service,
	nachaBuilder *nacha.Builder,
	baseLogger *zerolog.Logger,
) *Handler {
	return &Handler{
		accounts:      accounts,
		mandates:      mandates,
		transfers:     transfers,
		vault:         vault,
		negativeList:  negativeList,
		bus:           bus,
		detector:      detector,
		selector:      selector,
		mandateEngine: mandateEngine,
		riskEngine:    riskEngine,
		microdeposits: microdeposits,
		nachaBuilder:  nachaBuilder,
		log:           baseLogger.With().Str("component", "api").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ports.ErrVersionConflict):
		writeError(w, http.StatusConflict, "concurrent modification, retry")
	default:
		h.log.Error().Err(err).Msg("Request failed on store error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func urlUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// --- Bank detail validation ---

type validateDetailsRequest struct {
	Country       string `json:"country"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
}

type validateDetailsResponse struct {
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Formatted string   `json:"formatted,omitempty"`
}

func (h *Handler) handleValidateBankDetails(w http.ResponseWriter, r *http.Request) {
	var req validateDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := validation.ValidateBankDetails(req.Country, req.AccountNumber, req.RoutingNumber)
	writeJSON(w, http.StatusOK, validateDetailsResponse{
		Valid:     res.Valid,
		Errors:    res.Errors,
		Warnings:  res.Warnings,
		Formatted: res.Formatted,
	})
}

// --- Accounts ---

type createAccountRequest struct {
	HolderName    string `json:"holder_name"`
	HolderType    string `json:"holder_type"`
	AccountType   string `json:"account_type"`
	Country       string `json:"country"`
	Currency      string `json:"currency"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
}

type accountResponse struct {
	ID                 uuid.UUID `json:"id"`
	HolderName         string    `json:"holder_name"`
	HolderType         string    `json:"holder_type"`
	AccountType        string    `json:"account_type"`
	Country            string    `json:"country"`
	Currency           string    `json:"currency"`
	VerificationMethod string    `json:"verification_method"`
	VerificationStatus string    `json:"verification_status"`
	Active             bool      `json:"active"`
}

func toAccountResponse(acct *domain.BankAccount) accountResponse {
	return accountResponse{
		ID:                 acct.ID,
		HolderName:         acct.HolderName,
		HolderType:         string(acct.HolderType),
		AccountType:        string(acct.AccountType),
		Country:            acct.Country,
		Currency:           acct.Currency,
		VerificationMethod: string(acct.VerificationMethod),
		VerificationStatus: string(acct.VerificationStatus),
		Active:             acct.Active,
	}
}

// handleCreateAccount validates the details, seals them into the vault
// and persists the account. The response never echoes the raw numbers.
func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := validation.ValidateBankDetails(req.Country, req.AccountNumber, req.RoutingNumber)
	if !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, validateDetailsResponse{
			Valid:    false,
			Errors:   res.Errors,
			Warnings: res.Warnings,
		})
		return
	}

	ref, err := ports.SealBankDetails(h.vault, ports.DecryptedBankDetails{
		RoutingNumber: req.RoutingNumber,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to seal bank details")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	acct := &domain.BankAccount{
		ID:                 uuid.New(),
		HolderName:         req.HolderName,
		HolderType:         domain.HolderType(req.HolderType),
		AccountType:        domain.AccountType(req.AccountType),
		Country:            req.Country,
		Currency:           req.Currency,
		VaultRef:           ref,
		VerificationMethod: domain.VerificationMethodMicrodeposits,
		VerificationStatus: domain.VerificationUnverified,
		Active:             true,
	}
	if err := h.accounts.Create(r.Context(), acct); err != nil {
		h.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

// --- Capabilities ---

type capabilitiesResponse struct {
	AccountID         uuid.UUID `json:"account_id"`
	CanDebit          bool      `json:"can_debit"`
	CanCredit         bool      `json:"can_credit"`
	SupportedRails    []string  `json:"supported_rails"`
	VerificationLevel string    `json:"verification_level"`
	MaxDebitCents     int64     `json:"max_debit_cents"`
	MaxCreditCents    int64     `json:"max_credit_cents"`
	DailyCents        int64     `json:"daily_cents"`
	Restrictions      []string  `json:"restrictions,omitempty"`
	ComputedAt        time.Time `json:"computed_at"`
}

func (h *Handler) handleGetCapabilities(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlUUID(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	now := time.Now().UTC()
	returns, err := h.transfers.ReturnsSince(r.Context(), accountID, now.Add(-90*24*time.Hour))
	if err != nil {
		h.storeError(w, err)
		return
	}
	codes := make([]string, 0, len(returns))
	for _, rec := range returns {
		codes = append(codes, rec.Code)
	}

	caps := h.detector.Detect(capability.DetectInput{
		Account:     acct,
		ReturnCodes: codes,
		Now:         now,
	})

	rails := make([]string, 0, len(caps.SupportedRails))
	for _, rail := range caps.SupportedRails {
		rails = append(rails, string(rail))
	}
	restrictions := make([]string, 0, len(caps.Restrictions))
	for _, rs := range caps.Restrictions {
		restrictions = append(restrictions, string(rs))
	}

	writeJSON(w, http.StatusOK, capabilitiesResponse{
		AccountID:         caps.AccountID,
		CanDebit:          caps.CanDebit,
		CanCredit:         caps.CanCredit,
		SupportedRails:    rails,
		VerificationLevel: string(caps.VerificationLevel),
		MaxDebitCents:     caps.Limits.MaxDebitCents,
		MaxCreditCents:    caps.Limits.MaxCreditCents,
		DailyCents:        caps.Limits.DailyCents,
		Restrictions:      restrictions,
		ComputedAt:        caps.ComputedAt,
	})
}

// --- Strategy selection ---

type selectStrategyRequest struct {
	Country           string `json:"country"`
	Direction         string `json:"direction"`
	AmountCents       int64  `json:"amount_cents"`
	Priority          string `json:"priority"`
	RequireInstant    bool   `json:"require_instant"`
	MaxSettlementDays int    `json:"max_settlement_days"`
	MaxFeeCents       int64  `json:"max_fee_cents"`
	AccountVerified   bool   `json:"account_verified"`
	HasMandate        bool   `json:"has_mandate"`
}

type strategyOption struct {
	Name           string `json:"name"`
	Rail           string `json:"rail"`
	FeeCents       int64  `json:"fee_cents"`
	SettlementDays int    `json:"settlement_days"`
	Instant        bool   `json:"instant"`
	ChargebackRisk bool   `json:"chargeback_risk"`
}

func toStrategyOptions(opts []strategy.Option) []strategyOption {
	out := make([]strategyOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, strategyOption{
			Name:           o.Strategy.Name,
			Rail:           string(o.Strategy.Rail),
			FeeCents:       o.FeeCents,
			SettlementDays: o.SettlementDays,
			Instant:        o.Strategy.Instant,
			ChargebackRisk: o.Strategy.ChargebackRisk,
		})
	}
	return out
}

func (h *Handler) handleSelectStrategy(w http.ResponseWriter, r *http.Request) {
	var req selectStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := h.selector.Select(strategy.Criteria{
		Country:           req.Country,
		Direction:         domain.Direction(req.Direction),
		AmountCents:       req.AmountCents,
		Priority:          strategy.Priority(req.Priority),
		RequireInstant:    req.RequireInstant,
		MaxSettlementDays: req.MaxSettlementDays,
		MaxFeeCents:       req.MaxFeeCents,
		AccountVerified:   req.AccountVerified,
		HasMandate:        req.HasMandate,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"options": toStrategyOptions(opts)})
}

func (h *Handler) handleEstimateCosts(w http.ResponseWriter, r *http.Request) {
	var req selectStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := h.selector.EstimateCosts(req.Country, domain.Direction(req.Direction), req.AmountCents)
	writeJSON(w, http.StatusOK, map[string]interface{}{"options": toStrategyOptions(opts)})
}

// --- Mandates ---

type createMandateRequest struct {
	AccountID      uuid.UUID            `json:"account_id"`
	Scope          string               `json:"scope"`
	Direction      string               `json:"direction"`
	Rail           string               `json:"rail"`
	Country        string               `json:"country"`
	Limits         domain.MandateLimits `json:"limits"`
	EffectiveFrom  time.Time            `json:"effective_from"`
	ExpiresAt      *time.Time           `json:"expires_at,omitempty"`
	Revocable      *bool                `json:"revocable,omitempty"`
	Signature      string               `json:"signature"`
	ConsentText    string               `json:"consent_text"`
	ConsentVersion string               `json:"consent_version"`
	IPAddress      string               `json:"ip_address"`
}

var (
	mandateScopes = map[domain.MandateScope]bool{
		domain.ScopeSingle:    true,
		domain.ScopeRecurring: true,
		domain.ScopeStanding:  true,
		domain.ScopeBlanket:   true,
	}
	mandateDirections = map[domain.Direction]bool{
		domain.DirectionDebit:  true,
		domain.DirectionCredit: true,
		domain.DirectionBoth:   true,
	}
	mandateRails = map[domain.Rail]bool{
		domain.RailNACHA:          true,
		domain.RailRTP:            true,
		domain.RailFedNow:         true,
		domain.RailSEPA:           true,
		domain.RailSEPAInstant:    true,
		domain.RailBACS:           true,
		domain.RailFasterPayments: true,
		domain.RailNPP:            true,
		domain.RailBECS:           true,
		domain.RailEFT:            true,
	}
)

func (h *Handler) handleCreateMandate(w http.ResponseWriter, r *http.Request) {
	var req createMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Signature == "" || req.ConsentText == "" {
		writeError(w, http.StatusUnprocessableEntity, "authorization evidence is required")
		return
	}
	if !mandateScopes[domain.MandateScope(req.Scope)] {
		writeError(w, http.StatusUnprocessableEntity, "unknown mandate scope: "+req.Scope)
		return
	}
	if !mandateDirections[domain.Direction(req.Direction)] {
		writeError(w, http.StatusUnprocessableEntity, "unknown direction: "+req.Direction)
		return
	}
	// Rail is optional; an empty rail means the mandate is not bound to
	// a specific one.
	if req.Rail != "" && !mandateRails[domain.Rail(req.Rail)] {
		writeError(w, http.StatusUnprocessableEntity, "unknown rail: "+req.Rail)
		return
	}
	if _, err := h.accounts.GetByID(r.Context(), req.AccountID); err != nil {
		h.storeError(w, err)
		return
	}

	now := time.Now().UTC()
	revocable := true
	if req.Revocable != nil {
		revocable = *req.Revocable
	}
	m := &domain.Mandate{
		ID:        uuid.New(),
		AccountID: req.AccountID,
		Scope:     domain.MandateScope(req.Scope),
		Direction: domain.Direction(req.Direction),
		Rail:      domain.Rail(req.Rail),
		Country:   req.Country,
		Limits:    req.Limits,
		Evidence: domain.MandateEvidence{
			SignedAt:       now,
			Signature:      req.Signature,
			ConsentText:    req.ConsentText,
			ConsentVersion: req.ConsentVersion,
			IPAddress:      req.IPAddress,
		},
		EffectiveFrom: req.EffectiveFrom,
		ExpiresAt:     req.ExpiresAt,
		Revocable:     revocable,
		Status:        domain.MandateActive,
	}
	if m.EffectiveFrom.IsZero() {
		m.EffectiveFrom = now
	}
	if err := h.mandates.Create(r.Context(), m); err != nil {
		h.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": m.ID, "status": m.Status})
}

type validateMandateRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Direction   string `json:"direction"`
}

type validateMandateResponse struct {
	Valid                 bool     `json:"valid"`
	Errors                []string `json:"errors,omitempty"`
	Warnings              []string `json:"warnings,omitempty"`
	RemainingDailyCents   int64    `json:"remaining_daily_cents"`
	RemainingMonthlyCents int64    `json:"remaining_monthly_cents"`
}

func (h *Handler) handleValidateMandate(w http.ResponseWriter, r *http.Request) {
	mandateID, ok := urlUUID(r, "mandateID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid mandate id")
		return
	}
	var req validateMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.mandates.GetByID(r.Context(), mandateID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	res, err := h.mandateEngine.ValidateForTransfer(r.Context(), m, req.AmountCents, domain.Direction(req.Direction), time.Now().UTC())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateMandateResponse{
		Valid:                 res.Valid,
		Errors:                res.Errors,
		Warnings:              res.Warnings,
		RemainingDailyCents:   res.RemainingDailyCents,
		RemainingMonthlyCents: res.RemainingMonthlyCents,
	})
}

type revokeMandateRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRevokeMandate(w http.ResponseWriter, r *http.Request) {
	mandateID, ok := urlUUID(r, "mandateID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid mandate id")
		return
	}
	var req revokeMandateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.mandates.GetByID(r.Context(), mandateID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if err := h.mandateEngine.Revoke(r.Context(), m, req.Reason); err != nil {
		if errors.Is(err, mandate.ErrNotRevocable) || errors.Is(err, mandate.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": m.ID, "status": m.Status})
}

// --- Transfers ---

type createTransferRequest struct {
	AccountID   uuid.UUID  `json:"account_id"`
	MandateID   *uuid.UUID `json:"mandate_id,omitempty"`
	Direction   string     `json:"direction"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Provider    string     `json:"provider,omitempty"`
}

type createTransferResponse struct {
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	RiskScore      int       `json:"risk_score"`
	Recommendation string    `json:"recommendation"`
	Flags          []string  `json:"flags,omitempty"`
}

// handleQueueTransfer gates a prospective transfer through the mandate
// and risk engines and, only when both pass, persists it as pending for
// the next batch build. Mandate usage is recorded exactly once per
// queued transfer; a lost race on the mandate's lifetime caps cancels
// the transfer again.
func (h *Handler) handleQueueTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	direction := domain.Direction(req.Direction)
	if direction != domain.DirectionDebit && direction != domain.DirectionCredit {
		writeError(w, http.StatusUnprocessableEntity, "direction must be debit or credit")
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount_cents must be positive")
		return
	}
	if req.Currency == "" {
		writeError(w, http.StatusUnprocessableEntity, "currency is required")
		return
	}

	acct, err := h.accounts.GetByID(r.Context(), req.AccountID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if !acct.Active {
		writeError(w, http.StatusUnprocessableEntity, "account is inactive")
		return
	}
	if direction == domain.DirectionDebit && req.MandateID == nil {
		writeError(w, http.StatusUnprocessableEntity, "debit transfers require a mandate")
		return
	}

	now := time.Now().UTC()
	var m *domain.Mandate
	if req.MandateID != nil {
		m, err = h.mandates.GetByID(r.Context(), *req.MandateID)
		if err != nil {
			h.storeError(w, err)
			return
		}
		if m.AccountID != req.AccountID {
			writeError(w, http.StatusUnprocessableEntity, "mandate belongs to a different account")
			return
		}
		res, err := h.mandateEngine.ValidateForTransfer(r.Context(), m, req.AmountCents, direction, now)
		if err != nil {
			h.storeError(w, err)
			return
		}
		if !res.Valid {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "mandate validation failed",
				"errors": res.Errors,
			})
			return
		}
	}

	t := &domain.BankTransfer{
		ID:          uuid.New(),
		AccountID:   req.AccountID,
		MandateID:   req.MandateID,
		Direction:   direction,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Status:      domain.TransferPending,
	}

	assessment, err := h.riskEngine.AssessTransferRisk(r.Context(), risk.AssessInput{
		Transfer: t,
		Account:  acct,
		Mandate:  m,
		Now:      now,
	})
	if err != nil {
		h.log.Error().Err(err).Str("account_id", req.AccountID.String()).Msg("Risk assessment failed")
		writeError(w, http.StatusInternalServerError, "assessment failed")
		return
	}
	if assessment.Recommendation == domain.RecommendBlock {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":          "transfer blocked by risk assessment",
			"risk_score":     assessment.TotalScore,
			"recommendation": string(assessment.Recommendation),
			"flags":          assessment.AllFlags,
		})
		return
	}

	score := assessment.TotalScore
	t.RiskScore = &score
	t.RiskFlags = assessment.AllFlags
	if err := h.transfers.Create(r.Context(), t); err != nil {
		h.storeError(w, err)
		return
	}

	if m != nil {
		if err := h.mandateEngine.RecordUsage(r.Context(), m, t.AmountCents); err != nil {
			// A concurrent transfer consumed the remaining headroom
			// between validation and the guarded increment. Unwind the
			// queued row.
			t.Status = domain.TransferCancelled
			if uerr := h.transfers.Update(r.Context(), t); uerr != nil {
				h.log.Error().Err(uerr).Str("transfer_id", t.ID.String()).Msg("Failed to cancel transfer after usage rejection")
			}
			if errors.Is(err, ports.ErrLimitExceeded) {
				writeError(w, http.StatusConflict, "mandate limit exceeded")
				return
			}
			h.storeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, createTransferResponse{
		ID:             t.ID,
		Status:         string(t.Status),
		RiskScore:      assessment.TotalScore,
		Recommendation: string(assessment.Recommendation),
		Flags:          assessment.AllFlags,
	})
}

// --- Risk assessment ---

type riskCheck struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Score  int      `json:"score"`
	Flags  []string `json:"flags,omitempty"`
}

type assessResponse struct {
	TransferID     uuid.UUID   `json:"transfer_id"`
	TotalScore     int         `json:"total_score"`
	Recommendation string      `json:"recommendation"`
	Checks         []riskCheck `json:"checks"`
	Flags          []string    `json:"flags,omitempty"`
}

func (h *Handler) handleAssessTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := urlUUID(r, "transferID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	t, err := h.transfers.GetByID(r.Context(), transferID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), t.AccountID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	var m *domain.Mandate
	if t.MandateID != nil {
		m, err = h.mandates.GetByID(r.Context(), *t.MandateID)
		if err != nil {
			h.storeError(w, err)
			return
		}
	}

	res, err := h.riskEngine.AssessTransferRisk(r.Context(), risk.AssessInput{
		Transfer: t,
		Account:  acct,
		Mandate:  m,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("transfer_id", transferID.String()).Msg("Risk assessment failed")
		writeError(w, http.StatusInternalServerError, "assessment failed")
		return
	}

	// Persist the verdict on the transfer row.
	score := res.TotalScore
	t.RiskScore = &score
	t.RiskFlags = res.AllFlags
	if err := h.transfers.Update(r.Context(), t); err != nil {
		h.storeError(w, err)
		return
	}

	checks := make([]riskCheck, 0, len(res.Checks))
	for _, c := range res.Checks {
		checks = append(checks, riskCheck{Name: c.Name, Passed: c.Passed, Score: c.Score, Flags: c.Flags})
	}
	writeJSON(w, http.StatusOK, assessResponse{
		TransferID:     res.TransferID,
		TotalScore:     res.TotalScore,
		Recommendation: string(res.Recommendation),
		Checks:         checks,
		Flags:          res.AllFlags,
	})
}

// --- Returns ---

type recordReturnRequest struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

type transferReturnedEvent struct {
	TransferID uuid.UUID `json:"transfer_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Code       string    `json:"code"`
	Action     string    `json:"action"`
	ReturnedAt time.Time `json:"returned_at"`
}

// handleRecordReturn records a return reported by the rail and applies
// the code's remediation: negative-list addition, mandate revocation or
// account disablement. Unknown codes are still recorded and routed to
// review.
func (h *Handler) handleRecordReturn(w http.ResponseWriter, r *http.Request) {
	transferID, ok := urlUUID(r, "transferID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}
	var req recordReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "return code is required")
		return
	}

	t, err := h.transfers.GetByID(r.Context(), transferID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if t.Status == domain.TransferReturned {
		writeError(w, http.StatusConflict, "transfer is already returned")
		return
	}

	info, known := risk.ProcessReturnCode(req.Code)
	reason := req.Reason
	if reason == "" {
		reason = info.Description
	}

	t.Status = domain.TransferReturned
	t.ReturnCode = &req.Code
	t.ReturnReason = &reason
	if err := h.transfers.Update(r.Context(), t); err != nil {
		h.storeError(w, err)
		return
	}

	if info.AddToNegativeList && h.negativeList != nil {
		// The plaintext stays scoped to this block.
		details, err := ports.OpenVaultRef(h.vault, mustAccountRef(r.Context(), h, t.AccountID))
		if err != nil {
			h.log.Error().Err(err).Str("transfer_id", transferID.String()).Msg("Vault open failed; negative-list addition skipped")
		} else if err := h.negativeList.Add(r.Context(), details.RoutingNumber, details.AccountNumber, req.Code); err != nil {
			h.log.Error().Err(err).Str("transfer_id", transferID.String()).Msg("Negative-list addition failed")
		}
	}

	switch info.Action {
	case domain.ActionRevokeMandate:
		if t.MandateID != nil {
			if m, err := h.mandates.GetByID(r.Context(), *t.MandateID); err == nil {
				if err := h.mandateEngine.Revoke(r.Context(), m, "return "+req.Code); err != nil {
					h.log.Warn().Err(err).Str("mandate_id", m.ID.String()).Msg("Mandate revocation on return failed")
				}
			}
		}
	case domain.ActionDisableAccount:
		if acct, err := h.accounts.GetByID(r.Context(), t.AccountID); err == nil {
			acct.Active = false
			if err := h.accounts.Update(r.Context(), acct); err != nil {
				h.log.Warn().Err(err).Str("account_id", acct.ID.String()).Msg("Account disablement on return failed")
			}
		}
	}

	if h.bus != nil {
		_ = h.bus.Publish(r.Context(), ports.TopicTransferReturned, transferReturnedEvent{
			TransferID: t.ID,
			AccountID:  t.AccountID,
			Code:       req.Code,
			Action:     string(info.Action),
			ReturnedAt: time.Now().UTC(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":        req.Code,
		"known":       known,
		"description": info.Description,
		"action":      string(info.Action),
	})
}

// mustAccountRef loads the account's vault reference; an empty string
// makes the subsequent vault open fail, which the caller logs.
func mustAccountRef(ctx context.Context, h *Handler, accountID uuid.UUID) string {
	acct, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		return ""
	}
	return acct.VaultRef
}

// --- Micro-deposits ---

func (h *Handler) handleInitiateMicrodeposits(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlUUID(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	v, err := h.microdeposits.Initiate(r.Context(), accountID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, microdeposit.ErrAlreadyVerified):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, microdeposit.ErrResendCooldown):
			writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			h.storeError(w, err)
		}
		return
	}

	// The amounts themselves are never returned; the caller reads them
	// off their bank statement.
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"account_id": accountID,
		"status":     string(v.Status(time.Now().UTC())),
		"expires_at": v.ExpiresAt,
	})
}

type verifyMicrodepositsRequest struct {
	Amount1Cents int `json:"amount1_cents"`
	Amount2Cents int `json:"amount2_cents"`
}

func (h *Handler) handleVerifyMicrodeposits(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlUUID(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req verifyMicrodepositsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.microdeposits.Verify(r.Context(), accountID, req.Amount1Cents, req.Amount2Cents, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, microdeposit.ErrNotInitiated):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, microdeposit.ErrExpired), errors.Is(err, microdeposit.ErrVerificationFailed):
			writeError(w, http.StatusGone, err.Error())
		default:
			h.storeError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"verified":           res.Verified,
		"attempts_remaining": res.AttemptsRemaining,
	})
}

// --- NACHA batches ---

type buildBatchRequest struct {
	SECCode     string `json:"sec_code"`
	Description string `json:"description"`
	Limit       int    `json:"limit"`
}

type batchBuiltEvent struct {
	FileName         string    `json:"file_name"`
	Entries          int       `json:"entries"`
	TotalDebitCents  int64     `json:"total_debit_cents"`
	TotalCreditCents int64     `json:"total_credit_cents"`
	BuiltAt          time.Time `json:"built_at"`
}

// handleBuildBatch drains pending transfers into one NACHA file and
// moves them to processing with their assigned trace numbers.
func (h *Handler) handleBuildBatch(w http.ResponseWriter, r *http.Request) {
	var req buildBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SECCode == "" {
		req.SECCode = "PPD"
	}
	if req.Description == "" {
		req.Description = "PAYMENT"
	}
	if req.Limit <= 0 {
		req.Limit = 100
	}

	pending, err := h.transfers.ListPending(r.Context(), req.Limit)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if len(pending) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no pending transfers to batch")
		return
	}

	now := time.Now().UTC()
	entries := make([]nacha.EntryInput, 0, len(pending))
	byID := make(map[uuid.UUID]*domain.BankTransfer, len(pending))
	for _, t := range pending {
		acct, err := h.accounts.GetByID(r.Context(), t.AccountID)
		if err != nil {
			h.storeError(w, err)
			return
		}
		entries = append(entries, nacha.EntryInput{Transfer: t, Account: acct})
		byID[t.ID] = t
	}

	file, err := h.nachaBuilder.BuildFile(now, []nacha.Batch{{
		SECCode:     req.SECCode,
		Description: req.Description,
		Effective:   now.AddDate(0, 0, 1),
		Entries:     entries,
	}})
	if err != nil {
		h.log.Error().Err(err).Msg("NACHA file build failed")
		writeError(w, http.StatusInternalServerError, "file build failed")
		return
	}

	for _, trace := range file.Traces {
		t := byID[trace.TransferID]
		batchID := file.Name
		traceNumber := trace.TraceNumber
		t.BatchID = &batchID
		t.TraceNumber = &traceNumber
		t.Status = domain.TransferProcessing
		if err := h.transfers.Update(r.Context(), t); err != nil {
			h.storeError(w, err)
			return
		}
	}

	if h.bus != nil {
		_ = h.bus.Publish(r.Context(), ports.TopicBatchBuilt, batchBuiltEvent{
			FileName:         file.Name,
			Entries:          len(file.Traces),
			TotalDebitCents:  file.TotalDebitCents,
			TotalCreditCents: file.TotalCreditCents,
			BuiltAt:          now,
		})
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"file_name":          file.Name,
		"lines":              file.Lines,
		"batches":            file.Batches,
		"entries":            len(file.Traces),
		"total_debit_cents":  file.TotalDebitCents,
		"total_credit_cents": file.TotalCreditCents,
		"content":            file.Content,
	})
}

func (h *Handler) handleGeneratePrenote(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlUUID(r, "accountID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	acct, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		h.storeError(w, err)
		return
	}

	file, err := h.nachaBuilder.GeneratePrenote(time.Now().UTC(), acct, domain.DirectionCredit)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID.String()).Msg("Prenote generation failed")
		writeError(w, http.StatusInternalServerError, "prenote generation failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"file_name": file.Name,
		"lines":     file.Lines,
		"content":   file.Content,
	})
}

// --- Return codes ---

type returnCodeResponse struct {
	Code              string `json:"code"`
	Description       string `json:"description"`
	Action            string `json:"action"`
	AddToNegativeList bool   `json:"add_to_negative_list"`
}

func (h *Handler) handleListReturnCodes(w http.ResponseWriter, r *http.Request) {
	codes := risk.ReturnCodes()
	out := make([]returnCodeResponse, 0, len(codes))
	for code, info := range codes {
		out = append(out, returnCodeResponse{
			Code:              code,
			Description:       info.Description,
			Action:            string(info.Action),
			AddToNegativeList: info.AddToNegativeList,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"return_codes": out})
}
