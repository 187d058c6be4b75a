// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxfi/gateway/config"
	"github.com/luxfi/gateway/payload"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Multi-adapter cross-chain message gateway CLI",
	Long: `Tools for working with gateway wire payloads: build the message and
proof envelopes an adapter transmits, decode captured payloads, and validate
gateway configuration files.`,
	Version: fmt.Sprintf("%s (built %s)", version, buildDate),
}

func init() {
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(proofCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(checkConfigCmd)

	messageCmd.Flags().String("body", "", "Message body as a hex string")
	proofCmd.Flags().String("body", "", "Message body as a hex string")
	hashCmd.Flags().String("body", "", "Message body as a hex string")
	batchCmd.Flags().StringSlice("payload", nil, "Hex-encoded envelope, repeatable")
	decodeCmd.Flags().String("payload", "", "Hex-encoded envelope")
	checkConfigCmd.Flags().String("config-file", "", "Path to the gateway config file")
}

func bodyFromFlags(cmd *cobra.Command) []byte {
	bodyHex, _ := cmd.Flags().GetString("body")
	body, err := hex.DecodeString(bodyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid body hex: %v\n", err)
		os.Exit(1)
	}
	return body
}

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Compute the payload hash of a message body",
	Run: func(cmd *cobra.Command, args []string) {
		body := bodyFromFlags(cmd)
		fmt.Printf("%s\n", payload.Hash(body))
	},
}

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Build the full message envelope the primary adapter transmits",
	Run: func(cmd *cobra.Command, args []string) {
		msg, err := payload.NewMessage(bodyFromFlags(cmd))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid message: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Payload hash: %s\n", msg.PayloadHash())
		fmt.Printf("Envelope:     %s\n", hex.EncodeToString(msg.Bytes()))
	},
}

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Build the proof envelope secondary adapters transmit",
	Run: func(cmd *cobra.Command, args []string) {
		msg, err := payload.NewMessage(bodyFromFlags(cmd))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid message: %v\n", err)
			os.Exit(1)
		}
		proof := payload.ProofOf(msg)
		fmt.Printf("Payload hash: %s\n", proof.Hash)
		fmt.Printf("Envelope:     %s\n", hex.EncodeToString(proof.Bytes()))
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Concatenate envelopes into a single batch envelope",
	Run: func(cmd *cobra.Command, args []string) {
		entries, _ := cmd.Flags().GetStringSlice("payload")
		payloads := make([]payload.Payload, len(entries))
		for i, entry := range entries {
			raw, err := hex.DecodeString(entry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid payload hex at %d: %v\n", i, err)
				os.Exit(1)
			}
			p, err := payload.Parse(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid payload at %d: %v\n", i, err)
				os.Exit(1)
			}
			payloads[i] = p
		}

		batch, err := payload.NewBatch(payloads...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid batch: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Entries:  %d\n", len(batch.Entries))
		fmt.Printf("Envelope: %s\n", hex.EncodeToString(batch.Bytes()))
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a captured gateway envelope",
	Run: func(cmd *cobra.Command, args []string) {
		rawHex, _ := cmd.Flags().GetString("payload")
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid payload hex: %v\n", err)
			os.Exit(1)
		}

		p, err := payload.Parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to decode payload: %v\n", err)
			os.Exit(1)
		}

		switch p := p.(type) {
		case *payload.Message:
			fmt.Printf("Type:         message\n")
			fmt.Printf("Payload hash: %s\n", p.PayloadHash())
			fmt.Printf("Body:         %s\n", hex.EncodeToString(p.Body))
		case *payload.Proof:
			fmt.Printf("Type:         proof\n")
			fmt.Printf("Payload hash: %s\n", p.Hash)
		case *payload.Batch:
			fmt.Printf("Type:    batch\n")
			fmt.Printf("Entries: %d\n", len(p.Entries))
			for i, entry := range p.Entries {
				fmt.Printf("  %d: %s\n", i, hex.EncodeToString(entry))
			}
		}
	},
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate a gateway configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("config-file")
		if path == "" {
			fmt.Fprintf(os.Stderr, "--config-file is required\n")
			os.Exit(1)
		}

		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}

		cfg, err := config.NewConfig(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
			os.Exit(1)
		}

		out, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Printf("Config OK:\n%s\n", out)
	},
}
