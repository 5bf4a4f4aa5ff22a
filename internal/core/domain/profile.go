package domain

import "time"

// ProfileRecord is the external, flat row kept by the profile store.
type ProfileRecord struct {
	ID          string     `json:"id" bson:"_id"`
	Email       string     `json:"email" bson:"email"`
	FirstName   string     `json:"first_name" bson:"first_name"`
	LastName    string     `json:"last_name" bson:"last_name"`
	Role        string     `json:"role" bson:"role"`
	IsActive    bool       `json:"is_active" bson:"is_active"`
	PhoneNumber string     `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	DateOfBirth string     `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
	Address     *Address   `json:"address,omitempty" bson:"address,omitempty"`
	Insurance   *Insurance `json:"insurance,omitempty" bson:"insurance,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

// ToUserRecord maps the row into the internal shape.
func (p *ProfileRecord) ToUserRecord() *UserRecord {
	u := &UserRecord{
		ID:          p.ID,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Role:        Role(p.Role),
		IsActive:    p.IsActive,
		PhoneNumber: p.PhoneNumber,
		DateOfBirth: p.DateOfBirth,
		CreatedAt:   p.CreatedAt,
		Source:      SourceProfile,
	}
	if p.Address != nil {
		a := *p.Address
		u.Address = &a
	}
	if p.Insurance != nil {
		i := *p.Insurance
		u.Insurance = &i
	}
	if p.LastLogin != nil {
		t := *p.LastLogin
		u.LastLogin = &t
	}
	return u
}

// ProfileRecordFrom maps a UserRecord into the row shape.
func ProfileRecordFrom(u *UserRecord) *ProfileRecord {
	p := &ProfileRecord{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		PhoneNumber: u.PhoneNumber,
		DateOfBirth: u.DateOfBirth,
		CreatedAt:   u.CreatedAt,
	}
	if u.Address != nil {
		a := *u.Address
		p.Address = &a
	}
	if u.Insurance != nil {
		i := *u.Insurance
		p.Insurance = &i
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		p.LastLogin = &t
	}
	return p
}
