// Command shcctl is a CLI harness around the SmartHealthCard library:
// generate keys, create and verify cards, render a demo card, and serve
// the HTTP issuance/discovery endpoints. spec.md §6 treats a CLI as an
// out-of-scope example harness; this replaces the teacher's
// utils/keygen.go and examples/server.go with one cobra command tree.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log     = logrus.New()
	cfgFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shcctl",
		Short: "Issue, verify, and serve SMART Health Cards",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.shcctl.yaml)")
	root.PersistentFlags().String("issuer", "", "SMART Health Card issuer URI")
	root.PersistentFlags().String("private-key", "", "path to a PEM-encoded PKCS#8 private key")
	root.PersistentFlags().String("public-key", "", "path to a PEM-encoded SPKI public key")
	root.PersistentFlags().String("kid", "", "JWS key ID (defaults to the RFC 7638 thumbprint)")
	viper.BindPFlag("issuer", root.PersistentFlags().Lookup("issuer"))
	viper.BindPFlag("private_key", root.PersistentFlags().Lookup("private-key"))
	viper.BindPFlag("public_key", root.PersistentFlags().Lookup("public-key"))
	viper.BindPFlag("kid", root.PersistentFlags().Lookup("kid"))

	root.AddCommand(newKeygenCmd())
	root.AddCommand(newCreateCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newDemoCmd())
	root.AddCommand(newServeCmd())

	return root
}

func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".shcctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SHC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}
