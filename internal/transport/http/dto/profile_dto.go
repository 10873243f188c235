package dto

import "time"

type PhotoResponse struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	IsPrimary bool   `json:"isPrimary"`
	Position  int    `json:"position"`
}

type InterestResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type ProfileResponse struct {
	UserID      int64              `json:"userId"`
	DisplayName string             `json:"displayName"`
	Age         int                `json:"age"`
	Birthdate   string             `json:"birthdate"`
	Gender      string             `json:"gender"`
	Bio         string             `json:"bio,omitempty"`
	City        string             `json:"city,omitempty"`
	Occupation  string             `json:"occupation,omitempty"`
	Education   string             `json:"education,omitempty"`
	HeightCM    int                `json:"heightCm,omitempty"`
	LookingFor  string             `json:"lookingFor,omitempty"`
	Photos      []PhotoResponse    `json:"photos"`
	Interests   []InterestResponse `json:"interests"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	City        string `json:"city"`
	Occupation  string `json:"occupation"`
	Education   string `json:"education"`
	HeightCM    int    `json:"heightCm"`
	LookingFor  string `json:"lookingFor"`
}

type PreferencesPayload struct {
	MinAge          int    `json:"minAge"`
	MaxAge          int    `json:"maxAge"`
	PreferredGender string `json:"preferredGender"`
	MaxDistanceKM   int    `json:"maxDistanceKm"`
}

type SetInterestsRequest struct {
	InterestIDs []int64 `json:"interestIds"`
}

type InterestsResponse struct {
	Interests []InterestResponse `json:"interests"`
}
