package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/config"
)

func main() {
	app := &cli.App{
		Name:  "relay-client",
		Usage: "Query and transact on ICON through the Pocket relay network",
		Description: `A data consumer of the ICON blockchain that sends every request through Pocket relay nodes.

This client can:
- Issue and verify Application Authentication Tokens (AATs)
- Query balances and raw JSON-RPC methods through relays
- Sign and submit ICX transfers through relays`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML or JSON configuration file; flags override it",
				EnvVars: []string{config.EnvConfigFile},
			},
			&cli.StringSliceFlag{
				Name:    "nodes",
				Usage:   "Relay node URLs",
				EnvVars: []string{config.EnvRelayNodes},
			},
			&cli.StringFlag{
				Name:    "chain-id",
				Aliases: []string{"chain"},
				Usage:   "Relay chain identifier of the target blockchain",
				EnvVars: []string{config.EnvRelayChainID},
			},
			&cli.StringFlag{
				Name:    "path-prefix",
				Usage:   "JSON-RPC path on the target chain node",
				EnvVars: []string{config.EnvRelayPathPrefix},
			},
			&cli.StringFlag{
				Name:    "aat-version",
				Usage:   "AAT protocol version",
				EnvVars: []string{config.EnvAATVersion},
			},
			&cli.StringFlag{
				Name:    "aat-scheme",
				Usage:   "AAT signature scheme: ed25519 or secp256k1",
				EnvVars: []string{config.EnvAATScheme},
			},
			&cli.StringFlag{
				Name:    "client-public-key",
				Usage:   "Client public key (hex) the AAT is issued to; defaults to the relay signer or application key",
				EnvVars: []string{config.EnvAATClientPublicKey},
			},
			&cli.StringFlag{
				Name:    "app-public-key",
				Usage:   "Application public key (hex); derived from the private key when omitted",
				EnvVars: []string{config.EnvAATAppPublicKey},
			},
			&cli.StringFlag{
				Name:    "key-source",
				Usage:   "Where the application private key comes from: hex, file or aws-kms",
				EnvVars: []string{config.EnvKeySourceType},
			},
			&cli.StringFlag{
				Name:    "app-private-key",
				Usage:   "Application private key (hex) for the hex key source",
				EnvVars: []string{config.EnvAppPrivateKey},
			},
			&cli.StringFlag{
				Name:    "app-private-key-file",
				Usage:   "File holding the application private key (hex) for the file key source",
				EnvVars: []string{config.EnvAppPrivateKeyFile},
			},
			&cli.StringFlag{
				Name:    "kms-ciphertext",
				Usage:   "Base64 KMS ciphertext of the application private key for the aws-kms key source",
				EnvVars: []string{config.EnvKMSCiphertext},
			},
			&cli.StringFlag{
				Name:    "kms-key-id",
				Usage:   "KMS key id or alias used to decrypt the application private key",
				EnvVars: []string{config.EnvKMSKeyID},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region for the aws-kms key source",
				EnvVars: []string{config.EnvAWSRegion},
			},
			&cli.StringFlag{
				Name:    "client-private-key",
				Usage:   "Client private key (hex) used to sign relay requests",
				EnvVars: []string{config.EnvClientPrivateKey},
			},
			&cli.IntFlag{
				Name:    "max-attempts",
				Usage:   "Total attempts for a retryable relay",
				EnvVars: []string{config.EnvMaxAttempts},
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Usage:   "Timeout for a single relay attempt",
				EnvVars: []string{config.EnvRequestTimeout},
			},
			&cli.DurationFlag{
				Name:    "overall-timeout",
				Usage:   "Timeout for a relay including retries",
				EnvVars: []string{config.EnvOverallTimeout},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Usage:   "Maximum relays per second; 0 disables the limit",
				EnvVars: []string{config.EnvRelaysPerSecond},
			},
			&cli.StringFlag{
				Name:    "token-store",
				Usage:   "Where issued AATs are kept: memory, badger or redis",
				EnvVars: []string{config.EnvTokenStoreType},
			},
			&cli.StringFlag{
				Name:    "token-store-path",
				Usage:   "Data directory for the badger token store",
				EnvVars: []string{config.EnvTokenStorePath},
			},
			&cli.StringFlag{
				Name:    "token-store-redis-address",
				Usage:   "host:port of the redis token store",
				EnvVars: []string{config.EnvTokenStoreRedisAddr},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvDebug},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "issue-aat",
				Usage:  "Issue an AAT and print it as JSON",
				Action: issueAATCommand,
			},
			{
				Name:  "verify-aat",
				Usage: "Verify an AAT given as JSON or a path to a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Usage:    "AAT JSON or path to a file holding it",
						Required: true,
					},
				},
				Action: verifyAATCommand,
			},
			{
				Name:  "balance",
				Usage: "Get the ICX balance of an address",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "address",
						Usage:    "ICON address (hx...); repeat to query several concurrently",
						Required: true,
					},
				},
				Action: balanceCommand,
			},
			{
				Name:   "send-tx",
				Usage:  "Sign and submit an ICX transfer",
				Flags:  transferFlags(),
				Action: sendTxCommand,
			},
			{
				Name:   "demo",
				Usage:  "Query the wallet balance, then submit a transfer",
				Flags:  transferFlags(),
				Action: demoCommand,
			},
			{
				Name:  "rpc",
				Usage: "Relay a raw JSON-RPC call",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "method",
						Usage:    "JSON-RPC method",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "params",
						Usage: "JSON encoded params",
					},
				},
				Action: rpcCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "wallet-key",
			Usage:    "ICON wallet private key (hex)",
			EnvVars:  []string{"ICON_WALLET_PRIVATE_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "Receiving address (hx...)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "value",
			Usage: "Amount in loop (decimal)",
			Value: "100000000000000",
		},
		&cli.Int64Flag{
			Name:  "step-limit",
			Usage: "Maximum steps the transaction may consume",
			Value: 1000000,
		},
		&cli.Int64Flag{
			Name:  "nid",
			Usage: "ICON network id",
			Value: config.DemoNetworkID,
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Submit without asking for confirmation",
		},
	}
}
