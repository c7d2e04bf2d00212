package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vintasoftware/kill-the-clipboard/ecdsa"
)

func newKeygenCmd() *cobra.Command {
	var privateOut, publicOut string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new ECDSA P-256 signing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ecdsa.GenerateKey()
			if err != nil {
				return err
			}

			privatePEM, err := ecdsa.MarshalPrivateKeyPEM(key)
			if err != nil {
				return err
			}
			publicPEM, err := ecdsa.MarshalPublicKeyPEM(&key.PublicKey)
			if err != nil {
				return err
			}

			if privateOut == "" {
				fmt.Fprint(cmd.OutOrStdout(), string(privatePEM))
			} else if err := os.WriteFile(privateOut, privatePEM, 0600); err != nil {
				return err
			}

			if publicOut == "" {
				fmt.Fprint(cmd.OutOrStdout(), string(publicPEM))
			} else if err := os.WriteFile(publicOut, publicPEM, 0644); err != nil {
				return err
			}

			log.WithField("correlation_id", uuid.NewString()).Info("generated new ECDSA P-256 key pair")
			return nil
		},
	}

	cmd.Flags().StringVar(&privateOut, "private-out", "", "write the private key PEM to this path instead of stdout")
	cmd.Flags().StringVar(&publicOut, "public-out", "", "write the public key PEM to this path instead of stdout")
	return cmd
}
