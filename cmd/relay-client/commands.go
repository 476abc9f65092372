package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/aat"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/chainclient"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

func issueAATCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	token, err := rt.issueToken(c.Context)
	if err != nil {
		return err
	}
	if rt.store != nil {
		if err := rt.manager.Save(token); err != nil {
			return fmt.Errorf("failed to store AAT: %w", err)
		}
	}
	return printJSON(token)
}

func verifyAATCommand(c *cli.Context) error {
	raw := c.String("token")
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		data, err := os.ReadFile(raw)
		if err != nil {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		raw = string(data)
	}

	var token types.AuthToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !aat.Verify(&token) {
		return types.NewSigningError("auth token signature does not verify", nil)
	}
	fmt.Println("AAT is valid")
	return nil
}

func balanceCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.newChainClient(c.Context)
	if err != nil {
		return err
	}

	addresses := c.StringSlice("address")
	balances, err := client.GetBalances(c.Context, addresses)
	if err != nil {
		return err
	}
	for _, address := range addresses {
		rt.logger.Sugar().Infow("Wallet balance", "address", address, "loop", balances[address].String())
		fmt.Printf("%s %s\n", address, balances[address].String())
	}
	return nil
}

func sendTxCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.newChainClient(c.Context)
	if err != nil {
		return err
	}

	txHash, err := submitTransfer(c, client)
	if err != nil {
		return err
	}
	fmt.Println(txHash)
	return nil
}

// demoCommand checks the wallet balance and only then submits a transfer
func demoCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.newChainClient(c.Context)
	if err != nil {
		return err
	}

	wallet, err := chainclient.NewWallet(c.String("wallet-key"))
	if err != nil {
		return err
	}

	balance, err := client.GetBalance(c.Context, wallet.Address())
	if err != nil {
		return fmt.Errorf("failed to get balance of %s: %w", wallet.Address(), err)
	}
	fmt.Println("Wallet balance:", balance.String())

	txHash, err := submitTransfer(c, client)
	if err != nil {
		return err
	}
	fmt.Println("Transaction:", txHash)
	return nil
}

func submitTransfer(c *cli.Context, client *chainclient.Client) (string, error) {
	wallet, err := chainclient.NewWallet(c.String("wallet-key"))
	if err != nil {
		return "", err
	}
	value, ok := new(big.Int).SetString(c.String("value"), 10)
	if !ok || value.Sign() < 0 {
		return "", fmt.Errorf("invalid value %q", c.String("value"))
	}

	tx := chainclient.NewTransfer(
		big.NewInt(c.Int64("nid")),
		wallet.Address(),
		c.String("to"),
		value,
		big.NewInt(c.Int64("step-limit")),
	)
	if !c.Bool("yes") {
		if err := confirm(fmt.Sprintf("Send %s loop from %s to %s", value.String(), wallet.Address(), tx.To)); err != nil {
			return "", err
		}
	}

	signed, err := wallet.SignTransaction(tx)
	if err != nil {
		return "", err
	}
	return client.SendTransaction(c.Context, signed)
}

func rpcCommand(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.newChainClient(c.Context)
	if err != nil {
		return err
	}

	var params interface{}
	if p := c.String("params"); p != "" {
		if !json.Valid([]byte(p)) {
			return fmt.Errorf("params must be valid JSON")
		}
		params = json.RawMessage(p)
	}

	var result json.RawMessage
	if err := client.Call(c.Context, c.String("method"), params, &result); err != nil {
		return err
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
