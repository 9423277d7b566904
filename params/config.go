package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Market holds the economic parameters of the matching engine.
type Market struct {
	// TaxRateBps is the settlement tax in basis points, withheld from
	// the seller's gross proceeds on every trade (100 bps = 1%).
	TaxRateBps int64

	// QuotaWindow is the rolling window over which per-good purchase
	// quantity is summed for quota enforcement.
	QuotaWindow time.Duration

	// QuotaCap is the maximum quantity of one good a participant may
	// acquire within QuotaWindow.
	QuotaCap int64

	// TickInterval throttles the periodic re-pricing/matching pass.
	//
	// Recommended values:
	//   - Demo/simulation: 1s (visible price movement)
	//   - Load testing:    100ms
	TickInterval time.Duration
}

type Node struct {
	APIAddr     string
	JournalPath string // empty disables the trade journal
	LogFile     string

	// Simulator settings (demo traffic; never enabled implicitly).
	SimEnabled  bool
	SimTraders  int
	SimSeed     int64
	SimInterval time.Duration
}

type Config struct {
	Market Market
	Node   Node
}

func Default() Config {
	return Config{
		Market: Market{
			TaxRateBps:   100,
			QuotaWindow:  4 * time.Hour,
			QuotaCap:     1000,
			TickInterval: time.Second,
		},
		Node: Node{
			APIAddr:     ":8080",
			JournalPath: "data/trades.db",
			LogFile:     "data/bazaard.log",
			SimEnabled:  false,
			SimTraders:  8,
			SimSeed:     0, // 0 means seed from wall clock
			SimInterval: 250 * time.Millisecond,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("TAX_RATE_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Market.TaxRateBps = n
		}
	}
	if v := os.Getenv("QUOTA_WINDOW_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Market.QuotaWindow = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("QUOTA_CAP"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Market.QuotaCap = n
		}
	}
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Market.TickInterval = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Node.JournalPath = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}

	if v := os.Getenv("SIM_ENABLED"); v != "" {
		cfg.Node.SimEnabled = v == "true"
	}
	if v := os.Getenv("SIM_TRADERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Node.SimTraders = n
		}
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Node.SimSeed = n
		}
	}
	if v := os.Getenv("SIM_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Node.SimInterval = time.Duration(n) * time.Millisecond
		}
	}

	return cfg
}
