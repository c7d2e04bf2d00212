package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vintasoftware/kill-the-clipboard/ecdsa"
	"github.com/vintasoftware/kill-the-clipboard/httpapi"
	"github.com/vintasoftware/kill-the-clipboard/qrcode"
	"github.com/vintasoftware/kill-the-clipboard/shc"
)

// newServeCmd runs the JWKS discovery + issuance HTTP endpoints, replacing
// the teacher's examples/server.go ExampleServer.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JWKS discovery and card issuance HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPEM, err := os.ReadFile(viper.GetString("private_key"))
			if err != nil {
				return err
			}
			key, err := ecdsa.LoadPrivateKeyPEM(keyPEM)
			if err != nil {
				return err
			}

			card := shc.New(shc.Config{
				Issuer:     viper.GetString("issuer"),
				PrivateKey: key,
				PublicKey:  &key.PublicKey,
				KeyID:      viper.GetString("kid"),
			})
			qr := qrcode.New(qrcode.Config{EnableChunking: true})
			server := httpapi.New(card, qr, &key.PublicKey, log)

			log.WithField("addr", addr).Info("starting shcctl server")
			return http.ListenAndServe(addr, server.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}
