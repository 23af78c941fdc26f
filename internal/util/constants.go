package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 附件上传限制
const (
	MaxAttachmentCount = 5
	MaxAttachmentSize  = 10 << 20 // 10MB
)

var (
	AllowedAttachmentMimes = []string{
		"image/",
		"application/pdf",
		"application/zip",
		"application/msword",
		"application/vnd.openxmlformats-officedocument",
		"application/vnd.ms-excel",
		"text/plain",
	}
)
