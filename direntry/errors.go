package direntry

const scope = "direntry"

const (
	KindPathNotFound     = "PathNotFound"
	KindPermissionDenied = "PermissionDenied"
	KindNotADirectory    = "NotADirectory"
	KindReadFailed       = "ReadFailed"
	KindAlreadyExists    = "AlreadyExists"
)
