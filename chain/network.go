/*
Package chain holds the read-only network constants the agent works against
and the contract ABI source for the tickets manager.

Everything here is resolved once at startup and shared across requests.
*/
package chain

import "fmt"

const (
	BaseMainnet = "base"
	BaseSepolia = "base-sepolia"
)

// Network describes one deployment target: where the tickets manager lives,
// which USDC contract is used for payments and where to read token balances.
type Network struct {
	ID                    string
	AlchemyNetwork        string
	USDCAddress           string
	TicketsManagerAddress string
	ABIURL                string
}

var networks = map[string]Network{
	BaseMainnet: {
		ID:                    BaseMainnet,
		AlchemyNetwork:        "base-mainnet",
		USDCAddress:           "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		TicketsManagerAddress: "0x6C99313a5823C17Be22338e96928ed6BEaD60A36",
		ABIURL:                "https://cdn.momentify.xyz/ABI/Events/TicketsManager.sol/TicketsManager.json",
	},
	BaseSepolia: {
		ID:                    BaseSepolia,
		AlchemyNetwork:        "base-sepolia",
		USDCAddress:           "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		TicketsManagerAddress: "0x3660220f72e8EF4c5dcb09ff14FAE776E5A708a6",
		ABIURL:                "https://staging.mediacontent.momentify.xyz/ABI/Events/TicketsManager.sol/TicketsManager.json",
	},
}

// ForEnvironment maps a deployment environment to its network.
// Only production runs against mainnet.
func ForEnvironment(environment string) Network {
	if environment == "production" {
		return networks[BaseMainnet]
	}
	return networks[BaseSepolia]
}

// Lookup returns the network registered under id.
func Lookup(id string) (Network, error) {
	n, ok := networks[id]
	if !ok {
		return Network{}, fmt.Errorf("unknown network id %q", id)
	}
	return n, nil
}

// AlchemyURL is the JSON-RPC endpoint for the network.
func (n Network) AlchemyURL(apiKey string) string {
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", n.AlchemyNetwork, apiKey)
}

// HasFaucet reports whether test funds can be requested on the network.
func (n Network) HasFaucet() bool {
	return n.ID == BaseSepolia
}
