package dto

import "time"

type UploadPhotoResponse struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	IsPrimary bool      `json:"isPrimary"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

type PhotosResponse struct {
	Photos []UploadPhotoResponse `json:"photos"`
}

type DeletePhotoResponse struct {
	OK bool `json:"ok"`
}
