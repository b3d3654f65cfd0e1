package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-vault/common/types"
	"github.com/spacemeshos/go-vault/events"
	"github.com/spacemeshos/go-vault/sql/accounts"
	"github.com/spacemeshos/go-vault/vault"
)

const (
	maxBodySize   = 1 << 16
	defaultEvents = 100
	streamBuffer  = 256
)

type createRequest struct {
	Frequency                uint32          `json:"frequency"`
	AmountPerCycle           uint64          `json:"amount_per_cycle"`
	OwnerCanWithdrawAllFunds bool            `json:"owner_can_withdraw_all_funds"`
	SettingsLocked           bool            `json:"settings_locked"`
	WithdrawableAmountStacks bool            `json:"withdrawable_amount_stacks"`
	AcceptsAdditionalFunds   bool            `json:"accepts_additional_funds"`
	Beneficiaries            []types.Address `json:"beneficiaries"`
	Deposit                  uint64          `json:"deposit"`
	Asset                    types.Asset     `json:"asset"`
	Creator                  types.Address   `json:"creator"`
}

type createResponse struct {
	ID types.VaultID `json:"id"`
}

type senderRequest struct {
	Sender types.Address `json:"sender"`
}

type depositRequest struct {
	Sender types.Address `json:"sender"`
	Amount uint64        `json:"amount"`
	Asset  types.Asset   `json:"asset"`
}

type settingsRequest struct {
	Sender                   types.Address `json:"sender"`
	WithdrawableAmountStacks bool          `json:"withdrawable_amount_stacks"`
	AcceptsAdditionalFunds   bool          `json:"accepts_additional_funds"`
}

type beneficiaryRequest struct {
	Sender  types.Address `json:"sender"`
	Address types.Address `json:"address"`
}

type withdrawAllResponse struct {
	Amount uint64 `json:"amount"`
}

type membershipResponse struct {
	Beneficiary bool `json:"beneficiary"`
}

type balanceResponse struct {
	Address types.Address `json:"address"`
	Asset   types.Asset   `json:"asset"`
	Balance uint64        `json:"balance"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Category: category(err)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %w", errBadRequest, err)
	}
	return nil
}

func vaultID(r *http.Request) (types.VaultID, error) {
	id, err := types.ParseVaultID(chi.URLParam(r, "id"))
	if err != nil {
		return id, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return id, nil
}

func address(r *http.Request, param string) (types.Address, error) {
	addr, err := types.StringToAddress(chi.URLParam(r, param))
	if err != nil {
		return addr, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return addr, nil
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.svc.Create(r.Context(), vault.CreateParams{
		Frequency:                req.Frequency,
		AmountPerCycle:           req.AmountPerCycle,
		OwnerCanWithdrawAllFunds: req.OwnerCanWithdrawAllFunds,
		SettingsLocked:           req.SettingsLocked,
		WithdrawableAmountStacks: req.WithdrawableAmountStacks,
		AcceptsAdditionalFunds:   req.AcceptsAdditionalFunds,
		Beneficiaries:            req.Beneficiaries,
		Deposit:                  req.Deposit,
		Asset:                    req.Asset,
		Creator:                  req.Creator,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, createResponse{ID: id})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.svc.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) releasable(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	release, err := s.svc.Releasable(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, release)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req depositRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.Deposit(r.Context(), id, req.Amount, req.Asset, req.Sender); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req senderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	release, err := s.svc.Withdraw(r.Context(), id, req.Sender)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, release)
}

func (s *Server) withdrawEverything(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req senderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := s.svc.WithdrawEverything(r.Context(), id, req.Sender)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, withdrawAllResponse{Amount: amount})
}

func (s *Server) lockSettings(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req senderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.LockSettings(r.Context(), id, req.Sender); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req settingsRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	err = s.svc.UpdateSettings(r.Context(), id, req.Sender, req.WithdrawableAmountStacks, req.AcceptsAdditionalFunds)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req beneficiaryRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.svc.AddBeneficiary(r.Context(), id, req.Sender, req.Address); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeBeneficiary expects the sender in the query string.
func (s *Server) removeBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := address(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	sender, err := types.StringToAddress(r.URL.Query().Get("sender"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: sender: %w", errBadRequest, err))
		return
	}
	if err := s.svc.RemoveBeneficiary(r.Context(), id, sender, addr); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) isBeneficiary(w http.ResponseWriter, r *http.Request) {
	id, err := vaultID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := address(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	member, err := s.svc.IsBeneficiary(id, addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, membershipResponse{Beneficiary: member})
}

func (s *Server) byOwner(w http.ResponseWriter, r *http.Request) {
	addr, err := address(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	found, err := s.svc.ByOwner(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeVaults(w, found)
}

func (s *Server) byBeneficiary(w http.ResponseWriter, r *http.Request) {
	addr, err := address(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	found, err := s.svc.ByBeneficiary(r.Context(), addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeVaults(w, found)
}

func (s *Server) writeVaults(w http.ResponseWriter, found []*types.Vault) {
	if found == nil {
		found = []*types.Vault{}
	}
	s.writeJSON(w, http.StatusOK, found)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := address(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	asset, err := types.ParseAsset(chi.URLParam(r, "asset"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	balance, err := s.svc.Balance(addr, asset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balanceResponse{Address: addr, Asset: asset, Balance: balance})
}

func (s *Server) accounts(w http.ResponseWriter, r *http.Request) {
	addr, err := address(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	found, err := s.svc.Accounts(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if found == nil {
		found = []accounts.Account{}
	}
	s.writeJSON(w, http.StatusOK, found)
}

func (s *Server) recentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEvents
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = parsed
	}
	evs := s.events.Recent(limit)
	if evs == nil {
		evs = []events.Event{}
	}
	s.writeJSON(w, http.StatusOK, evs)
}

// streamEvents writes events published after the request as newline delimited json
// until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, errors.New("streaming is not supported"))
		return
	}
	sub := s.events.Subscribe(streamBuffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Out():
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				s.logger.Debug("events stream closed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}
