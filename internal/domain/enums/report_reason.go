package enums

type ReportReason string

const (
	ReportReasonInappropriatePhotos ReportReason = "inappropriate_photos"
	ReportReasonHarassment          ReportReason = "harassment"
	ReportReasonSpam                ReportReason = "spam"
	ReportReasonFakeProfile         ReportReason = "fake_profile"
	ReportReasonUnderage            ReportReason = "underage"
	ReportReasonOther               ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReportReasonInappropriatePhotos, ReportReasonHarassment, ReportReasonSpam,
		ReportReasonFakeProfile, ReportReasonUnderage, ReportReasonOther:
		return true
	default:
		return false
	}
}
