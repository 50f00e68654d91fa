package commands

import (
	"os"
	"time"

	"toplogger-backend/lib/analysis"
	"toplogger-backend/lib/configutil"
	"toplogger-backend/lib/toplogger"
	"toplogger-backend/lib/toplogger/respcache"

	"github.com/dgraph-io/badger/v4"
)

type Config struct {
	BaseUrl string `json:"base_url"`
	// "memory", "sqlite" or "badger"
	Cache         string `json:"cache"`
	CachePath     string `json:"cache_path"`
	CacheTTLHours int    `json:"cache_ttl_hours"`
}

// newService assembles the client from toplogger.json5, falling back
// to an on-disk sqlite cache with a 12 hour ttl when no config exists.
func newService() analysis.Service {
	cfg, err := configutil.ReadConfig[Config]("toplogger.json5")
	if err != nil && !os.IsNotExist(err) {
		fatal("failed to read config", err)
	}
	if cfg.Cache == "" {
		cfg.Cache = "sqlite"
	}
	if cfg.CachePath == "" {
		cfg.CachePath = ".toplogger-cache"
	}
	if cfg.CacheTTLHours == 0 {
		cfg.CacheTTLHours = 12
	}

	var store respcache.Store
	switch cfg.Cache {
	case "memory":
		store = respcache.NewMemoryStore()
	case "sqlite":
		s, err := respcache.OpenSqliteStore(cfg.CachePath + ".db")
		if err != nil {
			fatal("failed to open sqlite response cache", err)
		}
		store = s
	case "badger":
		db, err := badger.Open(badger.DefaultOptions(cfg.CachePath))
		if err != nil {
			fatal("failed to open badger response cache", err)
		}
		store = respcache.NewBadgerStore(db)
	default:
		fatal("unknown cache backend", os.ErrInvalid)
	}

	client := toplogger.NewClient(toplogger.Options{
		BaseURL:  cfg.BaseUrl,
		Cache:    store,
		CacheTTL: time.Duration(cfg.CacheTTLHours) * time.Hour,
	})
	return analysis.Service{TL: client}
}
