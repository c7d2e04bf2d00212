package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vintasoftware/kill-the-clipboard/ecdsa"
	"github.com/vintasoftware/kill-the-clipboard/qrcode"
	"github.com/vintasoftware/kill-the-clipboard/shc"
)

func newVerifyCmd() *cobra.Command {
	var jwsToken string
	var qrContents []string
	var filePath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a SMART Health Card and print the recovered FHIR Bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPEM, err := os.ReadFile(viper.GetString("public_key"))
			if err != nil {
				return err
			}
			key, err := ecdsa.LoadPublicKeyPEM(keyPEM)
			if err != nil {
				return err
			}
			card := shc.New(shc.Config{PublicKey: key})

			if filePath != "" {
				contents, err := os.ReadFile(filePath)
				if err != nil {
					return err
				}
				credential, err := card.VerifyFile(string(contents))
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(credential.VC.CredentialSubject.FHIRBundle)
			}

			token := jwsToken
			if token == "" && len(qrContents) > 0 {
				decoded, err := qrcode.ScanQR(qrContents)
				if err != nil {
					return err
				}
				token = decoded
			}
			if strings.TrimSpace(token) == "" {
				return fmt.Errorf("one of --file, --jws, or --qr must be provided")
			}

			bundle, err := card.GetBundle(token)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(bundle)
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "path to a .smart-health-card file to verify")
	cmd.Flags().StringVar(&jwsToken, "jws", "", "a compact JWS to verify")
	cmd.Flags().StringSliceVar(&qrContents, "qr", nil, "one or more decoded QR content strings to verify (repeat for chunked cards)")
	return cmd
}
