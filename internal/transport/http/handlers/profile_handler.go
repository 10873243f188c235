package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/sparklabs/spark/internal/services/auth"
	profilesvc "github.com/sparklabs/spark/internal/services/profiles"
	"github.com/sparklabs/spark/internal/transport/http/dto"
	httperrors "github.com/sparklabs/spark/internal/transport/http/errors"
)

type ProfileHandler struct {
	service *profilesvc.Service
}

func NewProfileHandler(service *profilesvc.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	profile, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(profile))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	profile, err := h.service.Update(r.Context(), identity.UserID, profilesvc.UpdateInput{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		City:        req.City,
		Occupation:  req.Occupation,
		Education:   req.Education,
		HeightCM:    req.HeightCM,
		LookingFor:  req.LookingFor,
	})
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(profile))
}

func (h *ProfileHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), identity.UserID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PreferencesPayload{
		MinAge:          prefs.MinAge,
		MaxAge:          prefs.MaxAge,
		PreferredGender: prefs.PreferredGender,
		MaxDistanceKM:   prefs.MaxDistanceKM,
	})
}

func (h *ProfileHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.PreferencesPayload
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	err := h.service.UpdatePreferences(r.Context(), identity.UserID, profilesvc.Preferences{
		MinAge:          req.MinAge,
		MaxAge:          req.MaxAge,
		PreferredGender: req.PreferredGender,
		MaxDistanceKM:   req.MaxDistanceKM,
	})
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, req)
}

func (h *ProfileHandler) ListInterests(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	interests, err := h.service.ListInterests(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load interests")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.InterestsResponse{Interests: interestResponses(interests)})
}

func (h *ProfileHandler) SetInterests(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.SetInterestsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.service.SetInterests(r.Context(), identity.UserID, req.InterestIDs); err != nil {
		handleProfileError(w, err)
		return
	}

	profile, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.InterestsResponse{Interests: profileResponse(profile).Interests})
}

func handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profilesvc.ErrProfileNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
	case errors.Is(err, profilesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "profile validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to process profile request")
	}
}

func profileResponse(profile profilesvc.Profile) dto.ProfileResponse {
	resp := dto.ProfileResponse{
		UserID:      profile.UserID,
		DisplayName: profile.DisplayName,
		Age:         profile.Age,
		Birthdate:   profile.Birthdate.Format("2006-01-02"),
		Gender:      profile.Gender,
		Bio:         profile.Bio,
		City:        profile.City,
		Occupation:  profile.Occupation,
		Education:   profile.Education,
		HeightCM:    profile.HeightCM,
		LookingFor:  profile.LookingFor,
		Photos:      []dto.PhotoResponse{},
		Interests:   []dto.InterestResponse{},
		UpdatedAt:   profile.UpdatedAt,
	}
	for _, photo := range profile.Photos {
		resp.Photos = append(resp.Photos, dto.PhotoResponse{
			ID:        photo.ID,
			URL:       photo.URL,
			IsPrimary: photo.IsPrimary,
			Position:  photo.Position,
		})
	}
	resp.Interests = interestResponses(profile.Interests)
	return resp
}

func interestResponses(interests []profilesvc.Interest) []dto.InterestResponse {
	out := make([]dto.InterestResponse, 0, len(interests))
	for _, interest := range interests {
		out = append(out, dto.InterestResponse{
			ID:       interest.ID,
			Name:     interest.Name,
			Category: interest.Category,
		})
	}
	return out
}
