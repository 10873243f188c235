package dto

import "time"

type CandidateResponse struct {
	UserID             int64     `json:"userId"`
	DisplayName        string    `json:"displayName"`
	Age                int       `json:"age"`
	Gender             string    `json:"gender"`
	Bio                string    `json:"bio,omitempty"`
	City               string    `json:"city,omitempty"`
	Occupation         string    `json:"occupation,omitempty"`
	PhotoURLs          []string  `json:"photoUrls"`
	Interests          []string  `json:"interests"`
	SharedInterests    []string  `json:"sharedInterests"`
	CompatibilityScore int       `json:"compatibilityScore"`
	LastActive         time.Time `json:"lastActive"`
}

type DiscoverResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
	HasMore    bool                `json:"hasMore"`
}
