package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry explicit
	// envconfig tags so the prefix only matters for unprefixed fields.
	EnvPrefix = "laptopshop"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "LAPTOPSHOP_DB_DSN"
	EnvDBHost = "LAPTOPSHOP_DB_HOST"
	EnvDBUser = "LAPTOPSHOP_DB_USER"
	EnvDBName = "LAPTOPSHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
