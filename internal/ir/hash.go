package ir

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// MarketAddress derives the marketplace's own address from its deployer.
// It is the address a contract deployed by deployer at nonce 0 would get.
func MarketAddress(deployer Identity) Identity {
	return crypto.CreateAddress(deployer, 0)
}

// StoreAddress derives the address of the store minted by market at the
// given factory nonce. Store n (0-based) is minted at nonce n+1, following
// the contract-account convention that a factory's nonce starts at 1.
//
// The address is stable across restarts and replays given the same inputs.
func StoreAddress(market Identity, storeID uint64) Identity {
	return crypto.CreateAddress(market, storeID+1)
}
