package http

import (
	"encoding/json"
	"net/http"
	"time"

	"gitlab.com/timkado/api/daisi-token-service/internal/application"
	"gitlab.com/timkado/api/daisi-token-service/internal/domain"
)

// GenerateTokenRequest is the expected payload for the /generate-token endpoint.
type GenerateTokenRequest struct {
	CompanyID        string `json:"company_id"`
	AgentID          string `json:"agent_id"`
	UserID           string `json:"user_id"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// GenerateTokenResponse is the response from the /generate-token endpoint.
type GenerateTokenResponse struct {
	Token string `json:"token"`
}

// GenerateTokenHandler creates and returns an encrypted company token.
func GenerateTokenHandler(tokenService *application.TokenService, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			logger.Warn(r.Context(), "Invalid method for /generate-token", "method", r.Method)
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only POST method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}

		var reqPayload GenerateTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&reqPayload); err != nil {
			logger.Warn(r.Context(), "Failed to decode /generate-token payload", "error", err.Error())
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if reqPayload.CompanyID == "" || reqPayload.AgentID == "" || reqPayload.UserID == "" || reqPayload.ExpiresInSeconds <= 0 {
			logger.Warn(r.Context(), "Invalid payload for /generate-token", "payload", reqPayload)
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid payload", "company_id, agent_id, user_id, and positive expires_in_seconds are required.").WriteJSON(w, http.StatusBadRequest)
			return
		}

		token, err := tokenService.IssueToken(
			r.Context(),
			reqPayload.CompanyID,
			reqPayload.AgentID,
			reqPayload.UserID,
			time.Duration(reqPayload.ExpiresInSeconds)*time.Second,
		)
		if err != nil {
			logger.Error(r.Context(), "Failed to issue token for /generate-token", "error", err.Error())
			domain.NewErrorResponse(domain.ErrInternal, "Failed to create token", "Internal error during token generation.").WriteJSON(w, http.StatusInternalServerError)
			return
		}

		resp := GenerateTokenResponse{Token: token}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error(r.Context(), "Failed to encode /generate-token response", "error", err.Error())
		}
	}
}
