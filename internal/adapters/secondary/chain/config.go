package chain

import "time"

type Config struct {
	TonCenterURL     string        `envconfig:"TONCENTER_URL" default:"https://toncenter.com/api/v3"`
	TonCenterAPIKey  string        `envconfig:"TONCENTER_API_KEY"`
	TonUSDTMaster    string        `envconfig:"TON_USDT_MASTER" default:"EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs"`
	TronGridURL      string        `envconfig:"TRONGRID_URL" default:"https://api.trongrid.io"`
	TronGridAPIKey   string        `envconfig:"TRONGRID_API_KEY"`
	TronUSDTContract string        `envconfig:"TRON_USDT_CONTRACT" default:"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"`
	Timeout          time.Duration `envconfig:"TIMEOUT" default:"10s"`
	RetryAttempts    uint          `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay       time.Duration `envconfig:"RETRY_DELAY" default:"300ms"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"3s"`
}
