package config

// EnvPrefix is passed to envconfig; individual tags carry the full names so
// the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "JUBILEE_APP_ENV"
	EnvDBDSN  = "JUBILEE_DB_DSN"
	EnvDBHost = "JUBILEE_DB_HOST"
	EnvDBUser = "JUBILEE_DB_USER"
	EnvDBName = "JUBILEE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
