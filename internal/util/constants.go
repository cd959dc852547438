package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const MimeJSON = "application/json"

// 上游网关注入的身份头
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)
