package handlers

import (
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	discoverysvc "github.com/sparklabs/spark/internal/services/discovery"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

type DiscoverHandler struct {
	service *discoverysvc.Service
}

func NewDiscoverHandler(service *discoverysvc.Service) *DiscoverHandler {
	return &DiscoverHandler{service: service}
}

func (h *DiscoverHandler) Feed(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "DISCOVERY_SERVICE_UNAVAILABLE", "discovery service is unavailable")
		return
	}

	feed, err := h.service.Feed(r.Context(), identity.UserID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		switch {
		case errors.Is(err, discoverysvc.ErrPreferencesMissing):
			writeBadRequest(w, "PREFERENCES_MISSING", "set discovery preferences first")
		case errors.Is(err, discoverysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid discover request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load candidates")
		}
		return
	}

	candidates := make([]dto.CandidateResponse, 0, len(feed.Candidates))
	for _, c := range feed.Candidates {
		candidates = append(candidates, dto.CandidateResponse{
			UserID:             c.UserID,
			DisplayName:        c.DisplayName,
			Age:                c.Age,
			Gender:             c.Gender,
			Bio:                c.Bio,
			City:               c.City,
			Occupation:         c.Occupation,
			PhotoURLs:          emptyIfNil(c.PhotoURLs),
			Interests:          emptyIfNil(c.Interests),
			SharedInterests:    emptyIfNil(c.SharedInterests),
			CompatibilityScore: c.CompatibilityScore,
			LastActive:         c.LastActive,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.DiscoverResponse{
		Candidates: candidates,
		HasMore:    feed.HasMore,
	})
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
