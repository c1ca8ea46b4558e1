package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tanitrust/amount"
	"tanitrust/auth"
	"tanitrust/dispute"
	"tanitrust/order"
	"tanitrust/pinning"
	"tanitrust/product"
)

const maxJSONBody = 1 << 20

var errBadJSON = errors.New("invalid JSON body")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, amount.ErrInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

// statusFor maps domain errors onto HTTP status codes. Anything unrecognised
// is a store failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dispute.ErrNotFound),
		errors.Is(err, dispute.ErrOrderNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dispute.ErrPartyVote):
		return http.StatusForbidden
	case errors.Is(err, dispute.ErrDuplicate),
		errors.Is(err, dispute.ErrAlreadyVoted),
		errors.Is(err, dispute.ErrResolved):
		return http.StatusConflict
	case errors.Is(err, errBadJSON),
		errors.Is(err, amount.ErrInvalid),
		errors.Is(err, dispute.ErrVotingDisabled),
		errors.Is(err, dispute.ErrInvalidInput),
		errors.Is(err, dispute.ErrInvalidSplit),
		errors.Is(err, dispute.ErrOrderMismatch),
		errors.Is(err, order.ErrInvalidInput),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, product.ErrInvalidInput),
		errors.Is(err, product.ErrInvalidQuery),
		errors.Is(err, pinning.ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, pinning.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps the wording existing clients display.
func publicMessage(err error, maxUpload int64) string {
	switch {
	case errors.Is(err, dispute.ErrNotFound):
		return "Dispute not found"
	case errors.Is(err, dispute.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, dispute.ErrVotingDisabled):
		return "Voting not yet enabled. Need 3+ proposals first."
	case errors.Is(err, dispute.ErrPartyVote):
		return "Dispute parties cannot vote"
	case errors.Is(err, dispute.ErrAlreadyVoted):
		return "Address has already voted on this dispute"
	case errors.Is(err, product.ErrNotFound):
		return "Product not found"
	case errors.Is(err, product.ErrInvalidInput), errors.Is(err, order.ErrInvalidInput):
		return "Missing required fields"
	case errors.Is(err, pinning.ErrNoFile):
		return "No file provided"
	case errors.Is(err, pinning.ErrNotImage):
		return "Only image files are allowed"
	case errors.Is(err, pinning.ErrTooLarge):
		return fmt.Sprintf("File size must be less than %dMB", maxUpload>>20)
	case errors.Is(err, pinning.ErrNotConfigured):
		return "Pinata not configured"
	case errors.Is(err, pinning.ErrUpstream):
		return "Failed to upload to IPFS"
	case statusFor(err) >= http.StatusInternalServerError:
		return "Internal server error"
	default:
		return err.Error()
	}
}

// fail writes the mapped error and logs store failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", requestID(r.Context())).Msg("request failed")
	}
	var maxUpload int64 = pinning.DefaultMaxBytes
	if s.uploads != nil {
		maxUpload = s.uploads.MaxBytes()
	}
	writeError(w, status, publicMessage(err, maxUpload))
}
