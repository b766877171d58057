package config

// EnvPrefix is intentionally empty; every field carries a fully qualified
// SIPBMN_ envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SIPBMN_DB_DSN"
	EnvDBHost = "SIPBMN_DB_HOST"
	EnvDBUser = "SIPBMN_DB_USER"
	EnvDBName = "SIPBMN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
