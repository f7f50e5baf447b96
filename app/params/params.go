package params

// Base parameters for the networks a node can join. Only the pieces the
// front-end needs live here; consensus params are out of scope.

const (
	MainNet = "main"
	TestNet = "test"
	RegTest = "regtest"
)

type BaseChainParams struct {
	Network string
	rpcPort int
}

func (p *BaseChainParams) RPCPort() int {
	return p.rpcPort
}

var baseParams = mainNetParams()

// BaseParams returns the currently selected network parameters.
func BaseParams() *BaseChainParams {
	return baseParams
}

// SelectBaseParams switches the active network. Unknown names fall back to
// mainnet.
func SelectBaseParams(network string) {
	switch network {
	case TestNet:
		baseParams = &BaseChainParams{Network: TestNet, rpcPort: 18332}
	case RegTest:
		baseParams = &BaseChainParams{Network: RegTest, rpcPort: 18443}
	default:
		baseParams = mainNetParams()
	}
}

func mainNetParams() *BaseChainParams {
	return &BaseChainParams{Network: MainNet, rpcPort: 8332}
}
