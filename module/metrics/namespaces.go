package metrics

// Prometheus metric namespaces
const (
	namespaceFleet = "evm_fleet"
)

// Prometheus metric subsystems
const (
	subsystemAction = "action"
	subsystemGame   = "game"
	subsystemWallet = "wallet"
	subsystemRPC    = "rpc"
)
