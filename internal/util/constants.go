package util

const (
	DateFormat  = "2006-01-02"
	MonthFormat = "2006-01"
	TimeFormat  = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeVideo = "video/"
	MimeImage = "image/"
)

const (
	// uploads above this are rejected before reaching storage
	MaxImageSize = 5 << 20
	MaxVideoSize = 200 << 20
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}
	AllowedImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)
