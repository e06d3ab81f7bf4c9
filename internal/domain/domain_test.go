package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestSessionFromClaims_DefaultsToPatient(t *testing.T) {
	s := SessionFromClaims(nil)
	assert.Equal(t, RolePatient, s.Role)

	s = SessionFromClaims(&Claims{UserID: 4, Role: "superuser"})
	assert.Equal(t, RolePatient, s.Role)
	assert.True(t, s.IsPatient())
}

func TestSessionFromClaims_DoctorContext(t *testing.T) {
	s := SessionFromClaims(&Claims{
		UserID:     9,
		Role:       RoleDoctor,
		DoctorID:   int64Ptr(3),
		DoctorName: "Ana Pérez",
	})

	assert.True(t, s.IsDoctor())
	assert.Equal(t, int64(3), *s.DoctorID)
	assert.Equal(t, "Ana Pérez", s.DoctorName)
}

func TestSessionFromClaims_DoctorFieldsIgnoredForOtherRoles(t *testing.T) {
	s := SessionFromClaims(&Claims{
		UserID:     1,
		Role:       RoleAdmin,
		DoctorID:   int64Ptr(3),
		DoctorName: "Ana Pérez",
	})

	assert.Nil(t, s.DoctorID)
	assert.Empty(t, s.DoctorName)
}

func TestSession_OwnsPatient(t *testing.T) {
	s := Session{Role: RolePatient, PatientID: int64Ptr(5)}
	assert.True(t, s.OwnsPatient(5))
	assert.False(t, s.OwnsPatient(6))
	assert.False(t, Session{Role: RolePatient}.OwnsPatient(5))
}
