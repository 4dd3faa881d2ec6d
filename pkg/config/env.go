package config

const EnvPrefix = "GIFTLEDGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "GIFTLEDGER_APP_ENV"
	EnvPort      = "GIFTLEDGER_APP_PORT"
	EnvLogLevel  = "GIFTLEDGER_LOG_LEVEL"
	EnvLogFormat = "GIFTLEDGER_LOG_FORMAT"

	EnvDBDSN  = "GIFTLEDGER_DB_DSN"
	EnvDBHost = "GIFTLEDGER_DB_HOST"
	EnvDBUser = "GIFTLEDGER_DB_USER"
	EnvDBName = "GIFTLEDGER_DB_NAME"

	EnvRedisURL = "GIFTLEDGER_REDIS_URL"

	EnvJWTSecret  = "GIFTLEDGER_JWT_SECRET"
	EnvJWTIssuer  = "GIFTLEDGER_JWT_ISSUER"
	EnvJWTExpMins = "GIFTLEDGER_JWT_EXPIRATION_MINUTES"

	EnvOrdersReadyAfter  = "GIFTLEDGER_ORDERS_READY_AFTER"
	EnvOrdersSweepOnList = "GIFTLEDGER_ORDERS_SWEEP_ON_LIST"

	EnvCronInterval = "GIFTLEDGER_CRON_INTERVAL"
	EnvSheetsEnable = "GIFTLEDGER_SHEETS_ENABLED"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
