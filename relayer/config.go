package relayer

import "github.com/ruteri/fhevm-instance-bootstrap/interfaces"

// DefaultRelayerURL is the public testnet relayer.
const DefaultRelayerURL = "https://relayer.testnet.zama.cloud"

// SepoliaConfig returns the default configuration of the Sepolia deployment.
func SepoliaConfig() interfaces.InstanceConfig {
	return interfaces.InstanceConfig{
		ACLContractAddress:                        "0x687820221192C5B662b25367F70076A37bc79b6c",
		KMSContractAddress:                        "0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC",
		InputVerifierContractAddress:              "0xbc91f3daD1A5F19F8390c400196e58073B6a0BC4",
		VerifyingContractAddressDecryption:        "0xb6E160B1ff80D67Bfe90A85eE06Ce0A2613607D1",
		VerifyingContractAddressInputVerification: "0x7048C39f048125eDa9d678AEbaDfB22F7900a29F",
		ChainID:                                   11155111,
		GatewayChainID:                            55815,
		Network:                                   "https://eth-sepolia.public.blastapi.io",
		RelayerURL:                                DefaultRelayerURL,
	}
}
