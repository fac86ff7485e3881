package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/mezonai/powchain/logx"
)

const (
	DefaultPort              = 5000
	DefaultDifficulty        = 4
	DefaultReward            = 50
	DefaultDialTimeout       = 5 * time.Second
	DefaultRequestTimeout    = 5 * time.Second
	DefaultMaxMessageBytes   = 8 << 20
	DefaultBroadcastWorkers  = 8
	DefaultGetChainPerMinute = 30

	BackendJSON    = "json"
	BackendLevelDB = "leveldb"
)

// Config is everything a node needs at start-up.
type Config struct {
	Node      NodeConfig
	Consensus ConsensusConfig
	Network   NetworkConfig
	Storage   StorageConfig
}

func Default() *Config {
	return &Config{
		Node: NodeConfig{
			NodeID:     "node1",
			ListenAddr: "0.0.0.0:" + strconv.Itoa(DefaultPort),
			APIAddr:    "127.0.0.1:8080",
			DataDir:    ".",
			ChainFile:  "blockchain.json",
			PeersFile:  "peers.txt",
		},
		Consensus: ConsensusConfig{
			Difficulty: DefaultDifficulty,
			Reward:     DefaultReward,
		},
		Network: NetworkConfig{
			Port:              DefaultPort,
			DialTimeoutMs:     int(DefaultDialTimeout / time.Millisecond),
			RequestTimeoutMs:  int(DefaultRequestTimeout / time.Millisecond),
			MaxMessageBytes:   DefaultMaxMessageBytes,
			BroadcastWorkers:  DefaultBroadcastWorkers,
			GetChainPerMinute: DefaultGetChainPerMinute,
		},
		Storage: StorageConfig{
			Backend: BackendJSON,
		},
	}
}

// Load reads the YAML node file and the INI tuning file on top of Default.
// An empty or missing path keeps the defaults for that part.
func Load(nodePath, tuningPath string) (*Config, error) {
	cfg := Default()
	if nodePath != "" {
		if err := loadNodeConfig(nodePath, &cfg.Node); err != nil {
			return nil, err
		}
	}
	if tuningPath != "" {
		if err := loadTuning(tuningPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadNodeConfig(path string, node *NodeConfig) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logx.Warn("CONFIG", "Node config ", path, " not found, using defaults")
			return nil
		}
		return fmt.Errorf("open node config: %w", err)
	}
	defer file.Close()

	cfgFile := ConfigFile{Node: *node}
	if err := yaml.NewDecoder(file).Decode(&cfgFile); err != nil {
		return fmt.Errorf("decode node config %s: %w", path, err)
	}
	*node = cfgFile.Node
	logx.Info("CONFIG", fmt.Sprintf("Loaded node config: node_id=%s listen=%s peers_file=%s", node.NodeID, node.ListenAddr, node.PeersFile))
	return nil
}

func loadTuning(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logx.Warn("CONFIG", "Tuning config ", path, " not found, using defaults")
		return nil
	}
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("load tuning config %s: %w", path, err)
	}
	if err := file.Section("consensus").MapTo(&cfg.Consensus); err != nil {
		return fmt.Errorf("map consensus section: %w", err)
	}
	if err := file.Section("network").MapTo(&cfg.Network); err != nil {
		return fmt.Errorf("map network section: %w", err)
	}
	if err := file.Section("storage").MapTo(&cfg.Storage); err != nil {
		return fmt.Errorf("map storage section: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Node.NodeID == "" {
		return fmt.Errorf("node_id is required")
	}
	if c.Consensus.Difficulty < 0 || c.Consensus.Difficulty > 64 {
		return fmt.Errorf("difficulty must be within [0, 64], got %d", c.Consensus.Difficulty)
	}
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		return fmt.Errorf("invalid network port %d", c.Network.Port)
	}
	if c.Network.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive")
	}
	switch c.Storage.Backend {
	case BackendJSON, BackendLevelDB:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// ChainPath resolves the chain file (or LevelDB directory) inside DataDir.
func (c *Config) ChainPath() string {
	return resolve(c.Node.DataDir, c.Node.ChainFile)
}

func (c *Config) PeersPath() string {
	return resolve(c.Node.DataDir, c.Node.PeersFile)
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func (c *Config) DialTimeout() time.Duration {
	return msOrDefault(c.Network.DialTimeoutMs, DefaultDialTimeout)
}

func (c *Config) RequestTimeout() time.Duration {
	return msOrDefault(c.Network.RequestTimeoutMs, DefaultRequestTimeout)
}

func msOrDefault(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
