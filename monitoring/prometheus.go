package monitoring

import (
	"net/http"
	"sync"

	"github.com/mezonai/powchain/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BlockRejectedReason string

var (
	BlockPrevHashMismatch  BlockRejectedReason = "prev_hash_mismatch"
	BlockIndexMismatch     BlockRejectedReason = "index_mismatch"
	BlockInsufficientWork  BlockRejectedReason = "insufficient_work"
	BlockHashMismatch      BlockRejectedReason = "hash_mismatch"
	BlockMalformed         BlockRejectedReason = "malformed"
	BlockPersistFailed     BlockRejectedReason = "persist_failed"
	BlockRejectedUndefined BlockRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds prometheus.Gauge
	mempoolSize       prometheus.Gauge
	blockHeight       prometheus.Gauge
	peerCount         prometheus.Gauge
	minedBlocks       prometheus.Counter
	acceptedBlocks    prometheus.Counter
	rejectedBlocks    *prometheus.CounterVec
	chainReplacements prometheus.Counter
	chainPulls        prometheus.Counter
	receivedTxCount   prometheus.Counter
	inboundMessages   *prometheus.CounterVec
	broadcastFailures *prometheus.CounterVec
	panicCount        prometheus.Counter
}

func newNodePromMetrics(reg prometheus.Registerer) *nodePromMetrics {
	factory := promauto.With(reg)
	return &nodePromMetrics{
		nodeUpUnixSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "powchain_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		mempoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "powchain_node_mempool_size",
				Help: "The total pending transactions queued in node's pool",
			},
		),
		blockHeight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "powchain_node_block_height",
				Help: "Index of the current chain tip",
			},
		),
		peerCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "powchain_node_peer_count",
				Help: "Number of peers listed in the peer file at last broadcast",
			},
		),
		minedBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "powchain_node_mined_block_count",
				Help: "The total number of blocks mined locally",
			},
		),
		acceptedBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "powchain_node_accepted_block_count",
				Help: "The total number of peer blocks appended to the chain",
			},
		),
		rejectedBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powchain_node_rejected_block_count",
				Help: "The total number of rejected peer blocks",
			},
			[]string{"reason"},
		),
		chainReplacements: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "powchain_node_chain_replacement_count",
				Help: "The total number of times the local chain was replaced by a longer valid chain",
			},
		),
		chainPulls: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "powchain_node_chain_pull_count",
				Help: "The total number of get_chain requests issued to peers",
			},
		),
		receivedTxCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "powchain_node_received_tx_count",
				Help: "The total number of transactions added to the pool (local or broadcast)",
			},
		),
		inboundMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powchain_node_inbound_message_count",
				Help: "Inbound peer messages by type",
			},
			[]string{"type"},
		),
		broadcastFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powchain_node_broadcast_failure_count",
				Help: "Failed peer deliveries by message type",
			},
			[]string{"type"},
		),
		panicCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "powchain_node_panic_count",
				Help: "Recovered panics in background goroutines",
			},
		),
	}
}

var (
	initOnce    sync.Once
	nodeMetrics *nodePromMetrics
)

// InitMetrics registers node metrics with the default registry. Safe to call
// more than once; recorders are no-ops until it has run.
func InitMetrics() {
	initOnce.Do(func() {
		nodeMetrics = newNodePromMetrics(prometheus.DefaultRegisterer)
		nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetMempoolSize(size int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.mempoolSize.Set(float64(size))
}

func SetBlockHeight(height uint64) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.blockHeight.Set(float64(height))
}

func SetPeerCount(peers int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.peerCount.Set(float64(peers))
}

func IncreaseMinedBlockCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.minedBlocks.Inc()
}

func IncreaseAcceptedBlockCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.acceptedBlocks.Inc()
}

func RecordRejectedBlock(reason BlockRejectedReason) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.rejectedBlocks.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func IncreaseChainReplacementCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.chainReplacements.Inc()
}

func IncreaseChainPullCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.chainPulls.Inc()
}

func IncreaseReceivedTxCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.receivedTxCount.Inc()
}

func RecordInboundMessage(msgType string) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.inboundMessages.With(prometheus.Labels{
		"type": msgType,
	}).Inc()
}

func RecordBroadcastFailure(msgType string) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.broadcastFailures.With(prometheus.Labels{
		"type": msgType,
	}).Inc()
}

func IncreasePanicCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.panicCount.Inc()
}
