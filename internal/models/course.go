package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type CourseType string

const (
	CourseTypeStudent  CourseType = "student"
	CourseTypeEducator CourseType = "educator"
	CourseTypeAdmin    CourseType = "admin"
)

const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"

	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

type Course struct {
	ID                 uuid.UUID        `json:"id" db:"id"`
	OwnerID            uuid.UUID        `json:"ownerId" db:"owner_id"`
	DocumentID         uuid.UUID        `json:"documentId" db:"document_id"`
	Title              string           `json:"title" db:"title"`
	Description        string           `json:"description" db:"description"`
	Subject            string           `json:"subject" db:"subject"`
	Level              Difficulty       `json:"level" db:"level"`
	Tags               []string         `json:"tags" db:"tags"`
	LearningObjectives []string         `json:"learningObjectives" db:"learning_objectives"`
	KeyConcepts        []string         `json:"keyConcepts" db:"key_concepts"`
	EstimatedDuration  string           `json:"estimatedDuration" db:"estimated_duration"`
	ChapterCount       int              `json:"chapterCount" db:"chapter_count"`
	Status             string           `json:"status" db:"status"`
	Visibility         string           `json:"visibility" db:"visibility"`
	CourseType         CourseType       `json:"courseType" db:"course_type"`
	Variant            CourseVariant    `json:"variant" db:"variant"`
	ProcessingStatus   ProcessingStatus `json:"processingStatus" db:"processing_status"`
	ProcessingError    *string          `json:"processingError,omitempty" db:"processing_error"`
	LastProcessedAt    *time.Time       `json:"lastProcessedAt,omitempty" db:"last_processed_at"`
	CreatedAt          time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time        `json:"updatedAt" db:"updated_at"`
}

// CourseVariant carries the fields specific to one course type. Exactly one
// member is set, and it must match Course.CourseType.
type CourseVariant struct {
	Student  *StudentDetails  `json:"student,omitempty"`
	Educator *EducatorDetails `json:"educator,omitempty"`
	Admin    *AdminDetails    `json:"admin,omitempty"`
}

type StudentDetails struct {
	EnrollmentRequired bool `json:"enrollmentRequired"`
}

type EducatorDetails struct {
	ClassID            *uuid.UUID `json:"classId,omitempty"`
	EnrollmentRequired bool       `json:"enrollmentRequired"`
}

type AdminDetails struct {
	Featured           bool     `json:"featured"`
	EnrollmentRequired bool     `json:"enrollmentRequired"`
	Audience           []string `json:"audience,omitempty"`
}

// DefaultVariant returns the zero-configuration variant for a course type.
func DefaultVariant(t CourseType) (CourseVariant, error) {
	switch t {
	case CourseTypeStudent:
		return CourseVariant{Student: &StudentDetails{}}, nil
	case CourseTypeEducator:
		return CourseVariant{Educator: &EducatorDetails{EnrollmentRequired: true}}, nil
	case CourseTypeAdmin:
		return CourseVariant{Admin: &AdminDetails{}}, nil
	default:
		return CourseVariant{}, fmt.Errorf("unknown course type %q", t)
	}
}

func (v CourseVariant) Validate(t CourseType) error {
	set := 0
	for _, present := range []bool{v.Student != nil, v.Educator != nil, v.Admin != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("course variant must have exactly one payload, got %d", set)
	}

	var ok bool
	switch t {
	case CourseTypeStudent:
		ok = v.Student != nil
	case CourseTypeEducator:
		ok = v.Educator != nil
	case CourseTypeAdmin:
		ok = v.Admin != nil
	default:
		return fmt.Errorf("unknown course type %q", t)
	}
	if !ok {
		return fmt.Errorf("course variant does not match course type %q", t)
	}
	return nil
}

// EnrollmentRequired reads the flag from whichever variant is set.
func (v CourseVariant) EnrollmentRequired() bool {
	switch {
	case v.Student != nil:
		return v.Student.EnrollmentRequired
	case v.Educator != nil:
		return v.Educator.EnrollmentRequired
	case v.Admin != nil:
		return v.Admin.EnrollmentRequired
	}
	return false
}
