package config

import (
	"github.com/spf13/viper"
)

const (
	DBURL          = "database.mysql"
	DBMaxOpenConns = "database.max_open_conns"

	LogLevel = "log.level"

	Port               = "server.port"
	JWTOfflineInterval = "server.jwt_offline_interval"
	Secret             = "server.secret"

	RedisAddress  = "redis.address"
	RedisPassword = "redis.password"
	RedisDB       = "redis.db"

	VaultAddress = "vault.address"
	VaultToken   = "vault.token"

	GatewayURL        = "gateway.url"
	GatewaySecretKey  = "gateway.secret_key"
	GatewaySecretPath = "gateway.secret_path"
	GatewayTimeout    = "gateway.timeout"
	GatewayCurrency   = "gateway.currency"

	VerifyURL = "credential.verify_url"

	CommissionRate     = "policy.commission_rate"
	VendorShareRate    = "policy.vendor_share_rate"
	RefundPlatformRate = "policy.refund_platform_rate"
	VendorDebit        = "policy.vendor_debit"
	ReleaseOnCancel    = "policy.release_on_cancel"
	AmountTolerance    = "policy.amount_tolerance"

	ConfirmLockTTL = "booking.confirm_lock_ttl"
	PlatformUserID = "booking.platform_user_id"
)

func init() {
	viper.AutomaticEnv()
	viper.SetDefault(LogLevel, "info")
	viper.SetDefault(Port, ":9000")
	viper.SetDefault(JWTOfflineInterval, 120)
	viper.SetDefault(DBMaxOpenConns, 25)

	viper.SetDefault(RedisAddress, "localhost:6379")
	viper.SetDefault(RedisDB, 0)

	viper.SetDefault(GatewayURL, "https://api.stripe.com")
	viper.SetDefault(GatewayTimeout, "10s")
	viper.SetDefault(GatewayCurrency, "inr")

	viper.SetDefault(VerifyURL, "https://eventers.app/verify")

	viper.SetDefault(CommissionRate, "0.01")
	viper.SetDefault(VendorShareRate, "0.29")
	viper.SetDefault(RefundPlatformRate, "0.01")
	viper.SetDefault(VendorDebit, "client_refund")
	viper.SetDefault(ReleaseOnCancel, false)
	viper.SetDefault(AmountTolerance, "0.01")

	viper.SetDefault(ConfirmLockTTL, "30s")
	viper.SetDefault(PlatformUserID, "platform")
}
