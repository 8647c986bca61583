package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Erikmmkarlsson/graphmaster/internal/flagx"
	"github.com/Erikmmkarlsson/graphmaster/internal/timex"
)

// JSONConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing both
// string values such as "24h" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config.
type JSONConfig struct {
	EndpointAddr              *string         `json:"endpoint_addr"`
	DatabaseDSN               *string         `json:"database_dsn"`
	SecretKey                 *string         `json:"secret_key"`
	AccessTokenValidity       *timex.Duration `json:"access_token_validity"`
	RegistrationTokenValidity *timex.Duration `json:"registration_token_validity"`
	RefreshWindow             *timex.Duration `json:"refresh_window"`
	BcryptCost                *int            `json:"bcrypt_cost"`
	SMTPHost                  *string         `json:"smtp_host"`
	SMTPPort                  *int            `json:"smtp_port"`
	SMTPUsername              *string         `json:"smtp_username"`
	SMTPPassword              *string         `json:"smtp_password"`
	SMTPSender                *string         `json:"smtp_sender"`
	ConfirmationURI           *string         `json:"confirmation_uri"`
	DataDir                   *string         `json:"data_dir"`
	SnapshotBucket            *string         `json:"snapshot_bucket"`
	SnapshotRegion            *string         `json:"snapshot_region"`
	SnapshotBaseEndpoint      *string         `json:"snapshot_base_endpoint"`
	SnapshotAccessKey         *string         `json:"snapshot_access_key"`
	SnapshotSecretKey         *string         `json:"snapshot_secret_key"`
	SnapshotInterval          *timex.Duration `json:"snapshot_interval"`
	BootstrapUsername         *string         `json:"bootstrap_username"`
	BootstrapPassword         *string         `json:"bootstrap_password"`
}

// parseJSON loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config command-line
// flags; when neither is set, no file is loaded. Only fields present in the
// file override the existing values. Read or parse failures panic: a config
// file that was explicitly pointed at must be usable.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *timex.Duration) {
		if src != nil {
			*dst = src.Duration
		}
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidity, c.AccessTokenValidity)
	setDuration(&config.RegistrationTokenValidity, c.RegistrationTokenValidity)
	setDuration(&config.RefreshWindow, c.RefreshWindow)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPSender, c.SMTPSender)
	setString(&config.ConfirmationURI, c.ConfirmationURI)
	setString(&config.DataDir, c.DataDir)
	setString(&config.SnapshotBucket, c.SnapshotBucket)
	setString(&config.SnapshotRegion, c.SnapshotRegion)
	setString(&config.SnapshotBaseEndpoint, c.SnapshotBaseEndpoint)
	setString(&config.SnapshotAccessKey, c.SnapshotAccessKey)
	setString(&config.SnapshotSecretKey, c.SnapshotSecretKey)
	setDuration(&config.SnapshotInterval, c.SnapshotInterval)
	setString(&config.BootstrapUsername, c.BootstrapUsername)
	setString(&config.BootstrapPassword, c.BootstrapPassword)
}
