package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
	// ISOTimeFormat 与前端约定的 UTC 时间格式，末尾固定为 Z
	ISOTimeFormat = "2006-01-02T15:04:05.000000Z"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	ContextUserKey  = "user"
	ContextTrackKey = "track"
)
