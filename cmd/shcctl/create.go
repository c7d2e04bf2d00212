package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vintasoftware/kill-the-clipboard/ecdsa"
	"github.com/vintasoftware/kill-the-clipboard/fhirbundle"
	"github.com/vintasoftware/kill-the-clipboard/qrcode"
	"github.com/vintasoftware/kill-the-clipboard/shc"
)

func newCreateCmd() *cobra.Command {
	var bundlePath string
	var optimize bool
	var asFile bool
	var qrOutDir string
	var expirationSeconds int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and sign a SMART Health Card from a FHIR Bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(bundlePath)
			if err != nil {
				return err
			}
			bundle, err := fhirbundle.Parse(raw)
			if err != nil {
				return err
			}

			keyPEM, err := os.ReadFile(viper.GetString("private_key"))
			if err != nil {
				return err
			}
			key, err := ecdsa.LoadPrivateKeyPEM(keyPEM)
			if err != nil {
				return err
			}

			card := shc.New(shc.Config{
				Issuer:               viper.GetString("issuer"),
				PrivateKey:           key,
				KeyID:                viper.GetString("kid"),
				ExpirationSeconds:    expirationSeconds,
				EnableQROptimization: optimize,
			})

			if qrOutDir != "" {
				token, err := card.Create(bundle, shc.VCOptions{})
				if err != nil {
					return err
				}
				return writeQRFiles(token, qrOutDir)
			}

			if asFile {
				fileJSON, err := card.CreateFile(bundle, shc.VCOptions{})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), fileJSON)
				return nil
			}

			token, err := card.Create(bundle, shc.VCOptions{})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&bundlePath, "bundle", "", "path to a FHIR Bundle JSON file")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "apply the QR size-reduction rewrite before signing")
	cmd.Flags().BoolVar(&asFile, "file", false, "emit a .smart-health-card file wrapper instead of a raw JWS")
	cmd.Flags().StringVar(&qrOutDir, "qr-out", "", "write one PNG per QR chunk into this directory instead of printing a JWS")
	cmd.Flags().Int64Var(&expirationSeconds, "expires-in", 0, "seconds from now the card expires (0 disables expiry)")
	cmd.MarkFlagRequired("bundle")
	return cmd
}

// writeQRFiles decodes each "data:image/png;base64,..." QR rendered by the
// default rasterizer and writes it to outDir as shc-<n>.png.
func writeQRFiles(jwsToken, outDir string) error {
	qr := qrcode.New(qrcode.Config{EnableChunking: true})
	images, err := qr.GenerateQR(jwsToken)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	for i, dataURL := range images {
		const marker = ";base64,"
		idx := strings.Index(dataURL, marker)
		if idx < 0 {
			return fmt.Errorf("unrecognized rasterizer output format")
		}
		png, err := base64.StdEncoding.DecodeString(dataURL[idx+len(marker):])
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("shc-%d.png", i+1))
		if err := os.WriteFile(path, png, 0644); err != nil {
			return err
		}
	}
	return nil
}
