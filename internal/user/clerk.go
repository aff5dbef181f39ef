package user

import "encoding/json"

type ClerkWebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type ClerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type ClerkUserData struct {
	ID                    string              `json:"id"`
	Username              string              `json:"username"`
	FirstName             string              `json:"first_name"`
	LastName              string              `json:"last_name"`
	ImageURL              string              `json:"image_url"`
	ProfileImageURL       string              `json:"profile_image_url"`
	PrimaryEmailAddressID string              `json:"primary_email_address_id"`
	EmailAddresses        []ClerkEmailAddress `json:"email_addresses"`
}

// PrimaryEmail returns the primary address (or the first one) and whether it
// is verified.
func (d *ClerkUserData) PrimaryEmail() (string, bool) {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress, e.Verification.Status == "verified"
		}
	}
	if len(d.EmailAddresses) > 0 {
		e := d.EmailAddresses[0]
		return e.EmailAddress, e.Verification.Status == "verified"
	}
	return "", false
}

func (d *ClerkUserData) DisplayUsername() string {
	if d.Username != "" {
		return d.Username
	}
	return d.FirstName + d.LastName
}

func (d *ClerkUserData) Image() string {
	if d.ImageURL != "" {
		return d.ImageURL
	}
	return d.ProfileImageURL
}
