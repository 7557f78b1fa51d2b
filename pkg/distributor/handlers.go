package distributor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// claimRequest is shared by /claim/prove and /claim
type claimRequest struct {
	DistributionID string `json:"distributionId"`
	Address        string `json:"address"`
}

type allocationResponse struct {
	DistributionID string `json:"distributionId"`
	LeafIndex      int    `json:"leafIndex"`
	Amount         string `json:"amount"`
	Proof          string `json:"proof"`
}

type distributionResponse struct {
	DistributionID string `json:"distributionId"`
	Root           string `json:"root"`
	RecipientCount int    `json:"recipientCount"`
	TotalAmount    string `json:"totalAmount"`
}

// handleGetDistribution serves the public summary of one distribution
func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/distribution/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "distribution id is required", http.StatusBadRequest)
		return
	}

	record, err := s.distributor.GetDistribution(id)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &distributionResponse{
		DistributionID: record.DistributionID,
		Root:           record.Root.Hex(),
		RecipientCount: len(record.Recipients),
		TotalAmount:    record.TotalAmount().String(),
	})
}

// handleProve regenerates proof material without touching the chain
func (s *Server) handleProve(w http.ResponseWriter, r *http.Request) {
	req, claimer, ok := s.parseClaimRequest(w, r)
	if !ok {
		return
	}

	allocation, err := s.distributor.ProveAllocation(r.Context(), req.DistributionID, claimer)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &allocationResponse{
		DistributionID: allocation.DistributionID,
		LeafIndex:      allocation.LeafIndex,
		Amount:         allocation.Amount.String(),
		Proof:          hexutil.Encode(allocation.Proof),
	})
}

// handleClaim regenerates the proof and settles through the settlement client
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, claimer, ok := s.parseClaimRequest(w, r)
	if !ok {
		return
	}

	claimed, err := s.distributor.HasClaimed(r.Context(), req.DistributionID, claimer)
	if err != nil {
		s.logger.Sugar().Warnw("hasClaimed check failed",
			"distributionId", req.DistributionID, "error", err)
		http.Error(w, "Settlement client unavailable", http.StatusBadGateway)
		return
	}
	if claimed {
		http.Error(w, "Allocation already claimed", http.StatusConflict)
		return
	}

	receipt, err := s.distributor.Claim(r.Context(), req.DistributionID, claimer)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, receipt)
}

// handleHealthz reports store health
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		http.Error(w, fmt.Sprintf("store unhealthy: %v", err), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) parseClaimRequest(w http.ResponseWriter, r *http.Request) (*claimRequest, types.Address, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, types.Address{}, false
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return nil, types.Address{}, false
	}

	if req.DistributionID == "" {
		http.Error(w, "distributionId is required", http.StatusBadRequest)
		return nil, types.Address{}, false
	}

	claimer, err := types.AddressFromHex(req.Address)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid address: %v", err), http.StatusBadRequest)
		return nil, types.Address{}, false
	}

	return &req, claimer, true
}

// writeClaimError maps the error taxonomy onto HTTP statuses
func (s *Server) writeClaimError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotEligible):
		http.Error(w, "Address is not eligible for this distribution", http.StatusNotFound)
	case errors.Is(err, ErrProofUnavailable):
		http.Error(w, "Distribution data unavailable, reload distribution data", http.StatusServiceUnavailable)
	case errors.Is(err, ErrVerificationMismatch):
		s.logger.Sugar().Errorw("Verification mismatch surfaced to API", "error", err)
		http.Error(w, "Internal proof verification defect", http.StatusInternalServerError)
	default:
		s.logger.Sugar().Warnw("Claim request failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Sugar().Warnw("Failed to encode response", "error", err)
	}
}
