package dto

type BlockRequest struct {
	TargetID int64 `json:"targetId"`
}

type BlockResponse struct {
	OK bool `json:"ok"`
}

type ReportRequest struct {
	TargetID    int64  `json:"targetId"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}

type ReportResponse struct {
	ReportID int64 `json:"reportId"`
}
