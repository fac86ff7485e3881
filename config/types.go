package config

// NodeConfig is the node identity and file layout, read from YAML.
type NodeConfig struct {
	NodeID     string   `yaml:"node_id"`
	ListenAddr string   `yaml:"listen_addr"`
	APIAddr    string   `yaml:"api_addr"`
	DataDir    string   `yaml:"data_dir"`
	ChainFile  string   `yaml:"chain_file"`
	PeersFile  string   `yaml:"peers_file"`
	AllowedIPs []string `yaml:"allowed_ips"`
	DeniedIPs  []string `yaml:"denied_ips"`
}

// ConfigFile is the top-level structure for node.yml
type ConfigFile struct {
	Node NodeConfig `yaml:"node"`
}

type ConsensusConfig struct {
	Difficulty int     `ini:"difficulty"`
	Reward     float64 `ini:"reward"`
}

type NetworkConfig struct {
	// Port used when a peer-file entry or a chain-pull target has no port.
	Port              int `ini:"port"`
	DialTimeoutMs     int `ini:"dial_timeout_ms"`
	RequestTimeoutMs  int `ini:"request_timeout_ms"`
	MaxMessageBytes   int `ini:"max_message_bytes"`
	BroadcastWorkers  int `ini:"broadcast_workers"`
	GetChainPerMinute int `ini:"get_chain_per_minute"`
}

type StorageConfig struct {
	// Backend is "json" (pretty-printed array file) or "leveldb".
	Backend string `ini:"backend"`
}
