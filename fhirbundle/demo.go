package fhirbundle

import (
	"fmt"
	"time"
)

// VaccineType names a COVID-19 vaccine product for the demo Bundle builder.
// This is the teacher's hard-coded immunization shape, kept as an optional
// convenience for the cmd/shcctl demo command rather than as the library's
// only supported Bundle shape (see SPEC_FULL.md §3A).
type VaccineType string

// Supported COVID-19 vaccination types for the demo builder.
const (
	Pfizer            VaccineType = "Pfizer"
	Moderna           VaccineType = "Moderna"
	JohnsonAndJohnson VaccineType = "JohnsonAndJohnson"
	AstraZeneca       VaccineType = "AstraZeneca"
	Sinopharm         VaccineType = "Sinopharm"
	COVAXIN           VaccineType = "COVAXIN"
)

// https://www2a.cdc.gov/vaccines/iis/iisstandards/vaccines.asp?rpt=cvx
func (vt VaccineType) cvxCode() (string, error) {
	switch vt {
	case Pfizer:
		return "208", nil
	case Moderna:
		return "207", nil
	case JohnsonAndJohnson:
		return "212", nil
	case AstraZeneca:
		return "210", nil
	case Sinopharm:
		return "510", nil
	case COVAXIN:
		return "502", nil
	default:
		return "", fmt.Errorf("unsupported vaccine type %q", vt)
	}
}

// DemoPatient is the demo builder's patient description.
type DemoPatient struct {
	Family    string
	Given     []string
	BirthDate time.Time
}

// DemoImmunization is the demo builder's immunization description.
type DemoImmunization struct {
	DatePerformed time.Time
	Performer     string
	LotNumber     string
	VaccineType   VaccineType
}

// NewDemoBundle builds a generic Bundle representing a patient's COVID-19
// immunization history, the teacher's original domain shape, now expressed
// as a Bundle instead of a bespoke Go struct so it can flow through the
// same Process/ProcessForQR/VC/JWS pipeline as any other caller-supplied
// Bundle.
func NewDemoBundle(patient DemoPatient, immunizations []DemoImmunization) (Bundle, error) {
	entries := make([]Entry, 0, len(immunizations)+1)

	entries = append(entries, Entry{
		FullURL: "resource:0",
		Resource: map[string]interface{}{
			"resourceType": "Patient",
			"name": []interface{}{
				map[string]interface{}{
					"family": patient.Family,
					"given":  toInterfaceSlice(patient.Given),
				},
			},
			"birthDate": patient.BirthDate.Format("2006-01-02"),
		},
	})

	for i, imm := range immunizations {
		cvx, err := imm.VaccineType.cvxCode()
		if err != nil {
			return Bundle{}, err
		}

		entries = append(entries, Entry{
			FullURL: fmt.Sprintf("resource:%d", i+1),
			Resource: map[string]interface{}{
				"resourceType": "Immunization",
				"status":       "completed",
				"vaccineCode": map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{
							"system": "https://hl7.org/fhir/sid/cvx",
							"code":   cvx,
						},
					},
				},
				"patient":            map[string]interface{}{"reference": "resource:0"},
				"occurrenceDateTime": imm.DatePerformed.Format("2006-01-02"),
				"performer": []interface{}{
					map[string]interface{}{
						"actor": map[string]interface{}{"display": imm.Performer},
					},
				},
				"lotNumber": imm.LotNumber,
			},
		})
	}

	return Bundle{
		ResourceType: "Bundle",
		Type:         CollectionType,
		Entries:      entries,
	}, nil
}

func toInterfaceSlice(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
