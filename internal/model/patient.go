package model

import (
	"time"
)

type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "O"
)

type Patient struct {
	Base
	Name        string    `db:"name" json:"name"`
	Sex         Sex       `db:"sex" json:"sex"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
}

// Age in whole years at the given reference time.
func (p *Patient) Age(at time.Time) int {
	years := at.Year() - p.DateOfBirth.Year()
	birthday := time.Date(at.Year(), p.DateOfBirth.Month(), p.DateOfBirth.Day(), 0, 0, 0, 0, time.UTC)
	if at.Before(birthday) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// PatientContext carries the demographics handed to the extraction
// collaborator so age/sex specific reference ranges can be read correctly.
type PatientContext struct {
	Sex Sex
	Age int
}

type CreatePatientRequest struct {
	Name        string `json:"name" binding:"required"`
	Sex         string `json:"sex" binding:"required,oneof=M F O"`
	DateOfBirth string `json:"date_of_birth" binding:"required,datetime=2006-01-02"`
}
