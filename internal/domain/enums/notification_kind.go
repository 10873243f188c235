package enums

type NotificationKind string

const (
	NotificationKindMatch     NotificationKind = "match"
	NotificationKindMessage   NotificationKind = "message"
	NotificationKindLike      NotificationKind = "like"
	NotificationKindSuperlike NotificationKind = "superlike"
	NotificationKindSystem    NotificationKind = "system"
)
