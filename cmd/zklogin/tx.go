package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/layer-3/zklogin/core"
)

// Mint metadata used when no flags are given
const (
	defaultNFTName        = "Sui zkLogin NFT"
	defaultNFTDescription = "An NFT minted with zkLogin address."
	defaultNFTImageURL    = "https://cdn.prod.website-files.com/6425f546844727ce5fb9e5ab/643820c0755b407a0a603863_sui-logo.svg"
)

var errNotReady = errors.New("session is not ready to sign: log in and wait for the proof")

func (a *app) transferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer",
		Short: "Send the configured test amount to the configured recipient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), advance)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Transfer(cmd.Context())
			if err != nil {
				return err
			}
			if res == nil {
				return errNotReady
			}
			return printJSON(cmd, res)
		},
	}
}

func (a *app) mintCmd() *cobra.Command {
	var meta core.NFTMetadata
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint an NFT to the zkLogin address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), advance)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Mint(cmd.Context(), meta)
			if err != nil {
				return err
			}
			if res == nil {
				return errNotReady
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&meta.Name, "name", defaultNFTName, "NFT name")
	cmd.Flags().StringVar(&meta.Description, "description", defaultNFTDescription, "NFT description")
	cmd.Flags().StringVar(&meta.ImageURL, "image-url", defaultNFTImageURL, "NFT image URL")
	return cmd
}

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the SUI balance of the zkLogin address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), advance)
			if err != nil {
				return err
			}
			defer svc.Close()

			bal, err := svc.Balance(cmd.Context())
			if err != nil {
				return err
			}
			if bal == nil {
				return errNotReady
			}
			return printJSON(cmd, map[string]any{
				"address": bal.Owner,
				"objects": bal.Objects,
				"mist":    bal.TotalMist,
				"sui":     bal.SUI().String(),
			})
		},
	}
}

func (a *app) nftsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "nfts",
		Short: "List NFTs of the configured type owned by the zkLogin address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(cmd.Context(), advance)
			if err != nil {
				return err
			}
			defer svc.Close()

			objects, err := svc.NFTs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, objects)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of objects")
	return cmd
}
