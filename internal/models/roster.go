package models

import (
	"strings"
	"time"
)

// CertLevel is a medical certification level from the roster.
type CertLevel string

const (
	CertNone      CertLevel = "NONE"
	CertEMT       CertLevel = "EMT"
	CertAEMT      CertLevel = "AEMT"
	CertALS       CertLevel = "ALS"
	CertParamedic CertLevel = "PARAMEDIC"
	CertMedic     CertLevel = "MEDIC"
)

// NormalizeCert maps free-text roster input onto a CertLevel.
func NormalizeCert(raw string) CertLevel {
	c := CertLevel(strings.ToUpper(strings.TrimSpace(raw)))
	switch c {
	case CertEMT, CertAEMT, CertALS, CertParamedic, CertMedic:
		return c
	default:
		return CertNone
	}
}

// EMTOrHigher reports whether the certification qualifies for attendant duty.
func (c CertLevel) EMTOrHigher() bool {
	switch c {
	case CertEMT, CertAEMT, CertALS, CertParamedic, CertMedic:
		return true
	}
	return false
}

// ALSCapable reports whether the certification covers ALS-level care.
func (c CertLevel) ALSCapable() bool {
	switch c {
	case CertALS, CertParamedic, CertMedic:
		return true
	}
	return false
}

// Unit is an operational resource in the rotation list.
type Unit struct {
	ID     string `db:"unit_id" json:"unit_id"`
	Label  string `db:"unit_label" json:"unit_label"`
	Active bool   `db:"active" json:"active"`
}

// Person is a roster member. The staffing core reads these rows and never
// mutates them outside of roster import.
type Person struct {
	ID             string    `db:"person_id" json:"person_id"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	Active         bool      `db:"active" json:"active"`
	EmploymentType string    `db:"employment_type" json:"employment_type"`
	MedicalCert    CertLevel `db:"medical_cert" json:"medical_cert"`
	WillingAttend  bool      `db:"willing_attend" json:"willing_attend"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PersonOps records that a person is qualified to operate a unit.
type PersonOps struct {
	PersonID   string `db:"person_id" json:"person_id"`
	UnitID     string `db:"unit_id" json:"unit_id"`
	CanOperate bool   `db:"can_operate" json:"can_operate"`
}

// Placeholder is a named stand-in assignment with no scheduling semantics
// of its own.
type Placeholder struct {
	ID     string `db:"placeholder_id" json:"placeholder_id"`
	Label  string `db:"placeholder_label" json:"placeholder_label"`
	Active bool   `db:"active" json:"active"`
}

// RosterSnapshot is the read-only roster view the fragility radar consumes.
type RosterSnapshot struct {
	People    []Person
	OpsByUnit map[string]map[string]bool
}

// CanOperate reports whether personID holds ops capability for unitID.
func (r *RosterSnapshot) CanOperate(personID, unitID string) bool {
	if r == nil || r.OpsByUnit == nil {
		return false
	}
	return r.OpsByUnit[unitID][personID]
}
