package cmd

import (
	"fmt"

	"github.com/mezonai/powchain/chain"
	"github.com/mezonai/powchain/config"
	"github.com/mezonai/powchain/db"
	"github.com/mezonai/powchain/logx"
)

func loadConfiguration() (*config.Config, error) {
	cfg, err := config.Load(nodeConfigPath, tuningConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// openPersister opens the chain storage selected by the storage backend.
func openPersister(cfg *config.Config) (chain.Persister, error) {
	switch cfg.Storage.Backend {
	case config.BackendLevelDB:
		provider, err := db.NewLevelDBProvider(cfg.ChainPath())
		if err != nil {
			return nil, err
		}
		persister, err := chain.NewLevelDBPersister(provider)
		if err != nil {
			provider.Close()
			return nil, err
		}
		logx.Info("STORAGE", "Using LevelDB chain store at ", cfg.ChainPath())
		return persister, nil
	default:
		logx.Info("STORAGE", "Using JSON chain file ", cfg.ChainPath())
		return chain.NewFilePersister(cfg.ChainPath()), nil
	}
}
