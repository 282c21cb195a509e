package hospital

import (
	"fmt"
	"io"

	"github.com/cityhospital/hms/pkg/config"
)

// ContactInfo is the hospital's public contact card.
type ContactInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// ContactFromConfig builds the contact card from configuration.
func ContactFromConfig(cfg config.HospitalConfig) ContactInfo {
	return ContactInfo{
		Name:    cfg.Name,
		Address: cfg.Address,
		Phone:   cfg.Phone,
		Email:   cfg.Email,
		Website: cfg.Website,
	}
}

// Format writes the contact card as text.
func (c ContactInfo) Format(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\nAddress: %s\nPhone: %s\nEmail: %s\nWebsite: %s\n",
		c.Name, c.Address, c.Phone, c.Email, c.Website)
	return err
}
