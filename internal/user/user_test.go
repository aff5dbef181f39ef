package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ana", (&User{FirstName: "Ana", Username: "ana_g"}).DisplayName())
	assert.Equal(t, "ana_g", (&User{Username: "ana_g"}).DisplayName())
}

func TestClerkUserData(t *testing.T) {
	d := &ClerkUserData{
		PrimaryEmailAddressID: "e2",
		FirstName:             "Ana",
		LastName:              "Gee",
		ProfileImageURL:       "https://img/p.png",
		EmailAddresses: []ClerkEmailAddress{
			{ID: "e1", EmailAddress: "old@x.io"},
			{ID: "e2", EmailAddress: "ana@x.io"},
		},
	}
	d.EmailAddresses[1].Verification.Status = "verified"

	addr, verified := d.PrimaryEmail()
	assert.Equal(t, "ana@x.io", addr)
	assert.True(t, verified)
	assert.Equal(t, "AnaGee", d.DisplayUsername())
	assert.Equal(t, "https://img/p.png", d.Image())

	d.PrimaryEmailAddressID = "missing"
	addr, verified = d.PrimaryEmail()
	assert.Equal(t, "old@x.io", addr)
	assert.False(t, verified)
}
