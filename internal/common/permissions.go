package common

// File permission constants shared by config and export writers
const (
	// FilePermissionSecure is used for the config file, which may hold credentials
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for exported reports
	FilePermissionNormal = 0644

	// DirPermissionSecure is used for the config directory
	DirPermissionSecure = 0700

	// DirPermissionNormal is used for export directories
	DirPermissionNormal = 0755
)
