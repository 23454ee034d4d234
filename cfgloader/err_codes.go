package cfgloader

const (
	CodeInvalidTarget      = "CONFIG_INVALID_TARGET"
	CodeInvalidEnvironment = "CONFIG_INVALID_ENVIRONMENT"
	CodeFileUnreadable     = "CONFIG_FILE_UNREADABLE"
	CodeInvalidConfig      = "CONFIG_INVALID"
)
