package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vintasoftware/kill-the-clipboard/ecdsa"
	"github.com/vintasoftware/kill-the-clipboard/fhirbundle"
	"github.com/vintasoftware/kill-the-clipboard/shc"
)

// newDemoCmd issues a sample COVID-19 immunization card using
// fhirbundle.NewDemoBundle, the teacher's original hard-coded domain shape
// now expressed as a Bundle builder rather than a bespoke form handler.
func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Create a sample SMART Health Card for a demo patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ecdsa.GenerateKey()
			if err != nil {
				return err
			}

			birthDate, _ := time.Parse("2006-01-02", "1990-01-15")
			firstDose, _ := time.Parse("2006-01-02", "2021-03-01")
			secondDose, _ := time.Parse("2006-01-02", "2021-03-22")

			bundle, err := fhirbundle.NewDemoBundle(
				fhirbundle.DemoPatient{Family: "Anyperson", Given: []string{"John", "B."}, BirthDate: birthDate},
				[]fhirbundle.DemoImmunization{
					{DatePerformed: firstDose, Performer: "Example Clinic", LotNumber: "0000001", VaccineType: fhirbundle.Pfizer},
					{DatePerformed: secondDose, Performer: "Example Clinic", LotNumber: "0000002", VaccineType: fhirbundle.Pfizer},
				},
			)
			if err != nil {
				return err
			}

			issuer := viper.GetString("issuer")
			if issuer == "" {
				issuer = "https://example.com"
			}

			card := shc.New(shc.Config{Issuer: issuer, PrivateKey: key, EnableQROptimization: true})
			token, err := card.Create(bundle, shc.VCOptions{})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	return cmd
}
